package model

// Version strings reported for the avatar extension that was found.
const (
	SpecVersion0 = "0.x"
	SpecVersion1 = "1.0"
)

// unknown is the placeholder for permission and identity fields the file leaves out.
const unknown = "Unknown"

// Meta is the identity and usage-permission record carried by an avatar file.
// Every field is optional in the file; DefaultMeta supplies the values used when a field is absent.
type Meta struct {
	Name                 string
	Version              string
	Authors              []string
	CopyrightInformation string
	ContactInformation   string
	References           []string
	ThirdPartyLicenses   string
	// ThumbnailImage is the glTF image index of the thumbnail, or -1 when none is set.
	ThumbnailImage int
	LicenseURL     string

	AvatarPermission               string
	AllowExcessivelyViolentUsage   bool
	AllowExcessivelySexualUsage    bool
	CommercialUsage                string
	AllowPoliticalOrReligiousUsage bool
	AllowAntisocialOrHateUsage     bool
	CreditNotation                 string
	AllowRedistribution            bool
	Modification                   string
	OtherLicenseURL                string
}

// DefaultMeta returns a Meta with every field set to its documented default.
//
// Returns:
//   - Meta: the default record
func DefaultMeta() Meta {
	return Meta{
		Name:             unknown,
		Version:          unknown,
		Authors:          []string{},
		References:       []string{},
		ThumbnailImage:   -1,
		AvatarPermission: unknown,
		CommercialUsage:  unknown,
		CreditNotation:   unknown,
		Modification:     unknown,
	}
}
