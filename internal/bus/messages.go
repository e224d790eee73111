package bus

import "map_exhibits/internal/models"

// Command names form the pub/sub contract between editor components.
type Command string

const (
	CmdSelect          Command = "select"
	CmdUnselect        Command = "unselect"
	CmdHighlight       Command = "highlight"
	CmdUnhighlight     Command = "unhighlight"
	CmdCursorMove      Command = "cursor:move"
	CmdCursorOut       Command = "cursor:out"
	CmdRefresh         Command = "refresh"
	CmdCoverageChanged Command = "coverage:changed"
	CmdEditStart       Command = "edit:start"
	CmdEditEnd         Command = "edit:end"
	CmdFetchFailed     Command = "fetch:failed"

	CmdRecordsDisplay   Command = "editor:records:display"
	CmdRecordsLoad      Command = "editor:records:load"
	CmdRecordsIngest    Command = "editor:records:ingest"
	CmdRecordsNavToList Command = "editor:records:navToList"

	CmdPresenterActivate   Command = "presenter:activate"
	CmdPresenterDeactivate Command = "presenter:deactivate"
)

// Source tags identify which component originated a message.
const (
	SourceMap        = "map"
	SourceRecordForm = "editor:record"
	SourceRecordList = "editor:records"
	SourceServer     = "server"
)

// Message is a payload bound to exactly one command.
type Message interface {
	Command() Command
}

// Select asks every component to select a record. Map-sourced selects come
// from feature clicks and never move the viewport.
type Select struct {
	Record models.RecordData
	Source string
}

// Unselect clears the selection of a record.
type Unselect struct {
	RecordID uint
	Source   string
}

// Highlight reports the cursor entering a record's feature.
type Highlight struct {
	Record models.RecordData
}

// Unhighlight reports the cursor leaving a record's feature.
type Unhighlight struct {
	RecordID uint
}

// CursorMove reports the pointer position in screen pixels.
type CursorMove struct {
	X, Y float64
}

// CursorOut reports the pointer leaving the map viewport.
type CursorOut struct{}

// Refresh asks the map to re-fetch and re-ingest its records.
type Refresh struct {
	Source string
}

// CoverageChanged carries geometry edited on the map overlay.
type CoverageChanged struct {
	RecordID uint
	Coverage string
}

// EditStart opens the editable geometry overlay for a record.
type EditStart struct {
	Record models.RecordData
}

// EditEnd removes the editable geometry overlay.
type EditEnd struct{}

// FetchFailed surfaces a failed record fetch.
type FetchFailed struct {
	Source string
	Err    error
}

type RecordsDisplay struct{}

type RecordsLoad struct {
	Query models.RecordQuery
}

type RecordsIngest struct {
	Records []models.RecordData
	Total   int64
}

type RecordsNavToList struct{}

type PresenterActivate struct{}

type PresenterDeactivate struct{}

func (Select) Command() Command              { return CmdSelect }
func (Unselect) Command() Command            { return CmdUnselect }
func (Highlight) Command() Command           { return CmdHighlight }
func (Unhighlight) Command() Command         { return CmdUnhighlight }
func (CursorMove) Command() Command          { return CmdCursorMove }
func (CursorOut) Command() Command           { return CmdCursorOut }
func (Refresh) Command() Command             { return CmdRefresh }
func (CoverageChanged) Command() Command     { return CmdCoverageChanged }
func (EditStart) Command() Command           { return CmdEditStart }
func (EditEnd) Command() Command             { return CmdEditEnd }
func (FetchFailed) Command() Command         { return CmdFetchFailed }
func (RecordsDisplay) Command() Command      { return CmdRecordsDisplay }
func (RecordsLoad) Command() Command         { return CmdRecordsLoad }
func (RecordsIngest) Command() Command       { return CmdRecordsIngest }
func (RecordsNavToList) Command() Command    { return CmdRecordsNavToList }
func (PresenterActivate) Command() Command   { return CmdPresenterActivate }
func (PresenterDeactivate) Command() Command { return CmdPresenterDeactivate }
