package domain

// Feed is a syndication source belonging to exactly one publisher.
type Feed struct {
	ID          int64
	UUID        string
	PublisherID int64
	URL         string
	Name        string
	Description string
	Language    string
	// ChannelID is the linked chat channel, if any. Articles ingested
	// through the feed are announced there in addition to notifications.
	ChannelID *string
}
