package tui

type View int

const (
	ViewFeed View = iota
	ViewDetail
	ViewSubmitText
	ViewSubmitURL
	ViewSearch
	ViewArchive
	ViewStats
)
