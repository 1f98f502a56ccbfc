package document

// DocumentType 连接器/来源类型
type DocumentType string

const (
	TypeFile                    DocumentType = "FILE"
	TypeExtension               DocumentType = "EXTENSION"
	TypeCrawledURL              DocumentType = "CRAWLED_URL"
	TypeYoutubeVideo            DocumentType = "YOUTUBE_VIDEO"
	TypeSlackConnector          DocumentType = "SLACK_CONNECTOR"
	TypeNotionConnector         DocumentType = "NOTION_CONNECTOR"
	TypeGithubConnector         DocumentType = "GITHUB_CONNECTOR"
	TypeLinearConnector         DocumentType = "LINEAR_CONNECTOR"
	TypeJiraConnector           DocumentType = "JIRA_CONNECTOR"
	TypeConfluenceConnector     DocumentType = "CONFLUENCE_CONNECTOR"
	TypeClickupConnector        DocumentType = "CLICKUP_CONNECTOR"
	TypeGoogleCalendarConnector DocumentType = "GOOGLE_CALENDAR_CONNECTOR"
	TypeGoogleGmailConnector    DocumentType = "GOOGLE_GMAIL_CONNECTOR"
	TypeGoogleDriveFile         DocumentType = "GOOGLE_DRIVE_FILE"
	TypeDiscordConnector        DocumentType = "DISCORD_CONNECTOR"
	TypeAirtableConnector       DocumentType = "AIRTABLE_CONNECTOR"
	TypeLumaConnector           DocumentType = "LUMA_CONNECTOR"
	TypeElasticsearchConnector  DocumentType = "ELASTICSEARCH_CONNECTOR"
	TypeBookstackConnector      DocumentType = "BOOKSTACK_CONNECTOR"
	TypeObsidianConnector       DocumentType = "OBSIDIAN_CONNECTOR"
	TypeWebcrawlerConnector     DocumentType = "WEBCRAWLER_CONNECTOR"
	TypeTeamsConnector          DocumentType = "TEAMS_CONNECTOR"
)

var knownTypes = map[DocumentType]struct{}{
	TypeFile: {}, TypeExtension: {}, TypeCrawledURL: {}, TypeYoutubeVideo: {},
	TypeSlackConnector: {}, TypeNotionConnector: {}, TypeGithubConnector: {},
	TypeLinearConnector: {}, TypeJiraConnector: {}, TypeConfluenceConnector: {},
	TypeClickupConnector: {}, TypeGoogleCalendarConnector: {}, TypeGoogleGmailConnector: {},
	TypeGoogleDriveFile: {}, TypeDiscordConnector: {}, TypeAirtableConnector: {},
	TypeLumaConnector: {}, TypeElasticsearchConnector: {}, TypeBookstackConnector: {},
	TypeObsidianConnector: {}, TypeWebcrawlerConnector: {}, TypeTeamsConnector: {},
}

func (t DocumentType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// ContentKind 决定切片策略
type ContentKind string

const (
	ContentKindText ContentKind = "text"
	ContentKindCode ContentKind = "code"
)

func (k ContentKind) Valid() bool {
	return k == ContentKindText || k == ContentKindCode
}
