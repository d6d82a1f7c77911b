package domain

// Publisher is a registered content source owning one or more feeds.
type Publisher struct {
	ID          int64
	UUID        string
	Slug        string
	Name        string
	Description string
	URL         string
	LogoURL     string
}
