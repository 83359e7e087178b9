// Package googlebooks contains a partial schema for the Google Books
// volumes API, limited to the fields the enrichment rules consume.
package googlebooks

// VolumesResponse is the shape of a volumes search response.
type VolumesResponse struct {
	TotalItems int64 `json:"totalItems"`
	Items      []struct {
		VolumeInfo *VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

// First returns the metadata block of the first result, or nil when the
// response carries no usable result.
func (r *VolumesResponse) First() *VolumeInfo {
	if r.TotalItems == 0 || len(r.Items) == 0 {
		return nil
	}
	return r.Items[0].VolumeInfo
}

// IndustryIdentifier is one entry of volumeInfo.industryIdentifiers.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// VolumeInfo is the metadata block of one volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           int64                `json:"pageCount"`
	Categories          []string             `json:"categories"`
	Language            string               `json:"language"`
	ImageLinks          struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
	InfoLink            string `json:"infoLink"`
	CanonicalVolumeLink string `json:"canonicalVolumeLink"`
	Series              string `json:"series"`
	Volume              string `json:"volume"`
}

// BestISBN returns the preferred identifier from the industry identifier
// list, an ISBN-13 entry over an ISBN-10 one, or "".
func (v *VolumeInfo) BestISBN() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			if id.Identifier != "" {
				return id.Identifier
			}
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Identifier
			}
		}
	}
	return isbn10
}
