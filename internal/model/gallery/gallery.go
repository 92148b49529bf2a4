package gallery

// SculptureRecord describes one sculpture in the dataset. Only the name is
// required; every other field is free text and may be empty. Years stay
// strings on purpose, the source values are imprecise historical ranges
// ("around 1380", "before 1228").
type SculptureRecord struct {
	Name                string `json:"name"`
	Year                string `json:"year,omitempty"`
	Location            string `json:"location,omitempty"`
	Artist              string `json:"artist,omitempty"`
	CastInformation     string `json:"cast_information,omitempty"`
	OriginalMaterial    string `json:"original_material,omitempty"`
	Dimensions          string `json:"dimensions,omitempty"`
	Description         string `json:"description,omitempty"`
	Style               string `json:"style,omitempty"`
	OriginalInformation string `json:"original_information,omitempty"`
}

// GeneralInfoBlock is one of the two fixed informational texts.
type GeneralInfoBlock struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GeneralInformation holds the two named info blocks, fixed keys.
type GeneralInformation struct {
	GalleryCollection GeneralInfoBlock `json:"gallery_collection"`
	GothicStyle       GeneralInfoBlock `json:"gothic_style"`
}

// Document is the dataset file as loaded: read-only for the process lifetime.
type Document struct {
	GeneralInformation GeneralInformation `json:"general_information"`
	Sculptures         []SculptureRecord  `json:"sculptures"`
}
