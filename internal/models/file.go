package models

import (
	"encoding/json"
	"time"
)

// FileStatus is the backend-owned processing stage of an uploaded file.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusQueuing    FileStatus = "queuing"
	StatusProcessing FileStatus = "processing"
	StatusSuccess    FileStatus = "success"
	StatusFailed     FileStatus = "failed"
	StatusCancelled  FileStatus = "cancelled"
	StatusUnknown    FileStatus = "unknown"
)

var fileStatuses = []FileStatus{
	StatusPending, StatusQueuing, StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled, StatusUnknown,
}

// UnmarshalJSON decodes any unrecognized status as [StatusUnknown].
func (s *FileStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = StatusUnknown
	for _, known := range fileStatuses {
		if FileStatus(raw) == known {
			*s = known
			break
		}
	}
	return nil
}

// InFlight reports whether the backend is still working on the file.
func (s FileStatus) InFlight() bool {
	return s == StatusPending || s == StatusQueuing || s == StatusProcessing
}

// Finished reports whether processing reached a terminal state.
func (s FileStatus) Finished() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// FileAction is an affordance offered for a file.
type FileAction string

const (
	ActionRetry    FileAction = "retry"
	ActionCancel   FileAction = "cancel"
	ActionDownload FileAction = "download"
	ActionDelete   FileAction = "delete"
)

// FileDescription is one generated description version.
type FileDescription struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileRecord is an uploaded file.
type FileRecord struct {
	ID                  int64             `json:"id"`
	Filename            string            `json:"filename"`
	Status              FileStatus        `json:"status"`
	Size                int64             `json:"size"`
	Type                string            `json:"type"`
	URL                 string            `json:"url"`
	CreatedAt           time.Time         `json:"created_at"`
	ActiveDescriptionID *int64            `json:"active_file_description_id"`
	Descriptions        []FileDescription `json:"file_descriptions"`
}

// Actions derives the affordances for the file's status. At most one of retry or cancel is
// included; download is always available and delete only when cancel is not.
func (f FileRecord) Actions() []FileAction {
	switch {
	case f.Status.Finished():
		return []FileAction{ActionRetry, ActionDownload, ActionDelete}
	case f.Status.InFlight():
		return []FileAction{ActionCancel, ActionDownload}
	default:
		return []FileAction{ActionDownload, ActionDelete}
	}
}

// Can reports whether action is offered for the file.
func (f FileRecord) Can(action FileAction) bool {
	for _, a := range f.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

// ActiveDescription returns the description the active pointer selects, or the newest one when
// the pointer is unset.
func (f FileRecord) ActiveDescription() (FileDescription, bool) {
	if len(f.Descriptions) == 0 {
		return FileDescription{}, false
	}
	if f.ActiveDescriptionID != nil {
		for _, d := range f.Descriptions {
			if d.ID == *f.ActiveDescriptionID {
				return d, true
			}
		}
	}

	newest := f.Descriptions[0]
	for _, d := range f.Descriptions[1:] {
		if d.CreatedAt.After(newest.CreatedAt) {
			newest = d
		}
	}
	return newest, true
}

// FileList is one page of files.
type FileList = Page[FileRecord]
