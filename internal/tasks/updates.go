package tasks

import (
	"fmt"

	"github.com/desertthunder/spotetl/internal/services"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	ListPlaylists
	FetchTracks
	StageRaw
	ListStaged
	ReadStaged
	WriteDatasets
	ArchiveRaw
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case ListPlaylists:
		return "list_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case StageRaw:
		return "stage_raw"
	case ListStaged:
		return "list_staged"
	case ReadStaged:
		return "read_staged"
	case WriteDatasets:
		return "write_datasets"
	case ArchiveRaw:
		return "archive_raw"
	default:
		return ""
	}
}

func authenticateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Authenticating with %s...", name),
	}
}

func listPlaylistsUpdate(user string, playlists []services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists for %s", len(playlists), user),
		Data:    playlists,
	}
}

func fetchTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching tracks of playlist %s...", playlistID),
	}
}

func stageRawUpdate(key string, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StageRaw,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Staged %s (%d bytes)", key, size),
	}
}

func listStagedUpdate(prefix string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListStaged,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d staged objects under %s", count, prefix),
	}
}

func readStagedUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadStaged,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Reading %s...", step, total, key),
	}
}

func writeDatasetUpdate(step, total int, key string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteDatasets,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d rows)", step, total, key, rows),
	}
}

func archiveRawUpdate(step, total int, src, dst string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArchiveRaw,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, src, dst),
	}
}
