package models

// PasswordSettings holds the password-generator complexity preferences stored
// as JSON under the PasswordGenerationSettings key of the Settings table.
// These are read by external collaborators (identity generator, form filler);
// the sync engine only guarantees the row merges like any other setting.
type PasswordSettings struct {
	Length               int  `json:"Length"`
	UseLowercase         bool `json:"UseLowercase"`
	UseUppercase         bool `json:"UseUppercase"`
	UseNumbers           bool `json:"UseNumbers"`
	UseSpecialChars      bool `json:"UseSpecialChars"`
	UseNonAmbiguousChars bool `json:"UseNonAmbiguousChars"`
}

// DefaultPasswordSettings mirrors the defaults applied when the Settings table
// has no stored preference yet.
func DefaultPasswordSettings() PasswordSettings {
	return PasswordSettings{
		Length:          18,
		UseLowercase:    true,
		UseUppercase:    true,
		UseNumbers:      true,
		UseSpecialChars: true,
	}
}
