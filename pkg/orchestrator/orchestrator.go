package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	v1 "github.com/pojntfx/atorrent/pkg/api/http/v1"
	"github.com/pojntfx/atorrent/pkg/backend"
	"github.com/pojntfx/atorrent/pkg/metainfo"
	"github.com/rs/zerolog/log"
)

var (
	ErrRegistrationTimeout = errors.New("could not find the submitted torrent on the backend")
	ErrAllFilesSkipped     = errors.New("could not apply a file selection that skips every file")
	ErrUnknownFileList     = errors.New("could not apply a file selection without a resolved file list")
)

// Stage is one step of the acquisition workflow.
type Stage string

const (
	StageRegistering            Stage = "registering"
	StageAwaitingRegistration   Stage = "awaitingRegistration"
	StageApplyingFilePriorities Stage = "applyingFilePriorities"
	StageStarting               Stage = "starting"
	StageDone                   Stage = "done"
)

// Result is the outcome of one acquisition workflow: the identifier the
// backend knows the torrent by, the furthest stage reached, and the error
// that halted the workflow there, if any.
type Result struct {
	Hash  string
	Stage Stage
	Err   error
}

// Orchestrator drives the linear registration workflow against the backend.
// The workflow never rolls back: a failure leaves everything committed by
// earlier stages in place, paused, for the caller to remediate.
type Orchestrator struct {
	backend *backend.Client

	attempts int
	interval time.Duration
}

func NewOrchestrator(
	backend *backend.Client,
	attempts int,
	interval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		backend: backend,

		attempts: attempts,
		interval: interval,
	}
}

// SkipIndices computes the zero-based indices of files NOT covered by the
// selection, in canonical flat order. Selections are "/"-joined paths. An
// empty selection and a selection covering every file both mean "download
// everything" and yield no indices.
func SkipIndices(files []metainfo.FileEntry, selected []string) ([]int, error) {
	if len(selected) == 0 {
		return nil, nil
	}

	if len(files) == 0 {
		return nil, ErrUnknownFileList
	}

	keep := map[string]struct{}{}
	for _, path := range selected {
		keep[path] = struct{}{}
	}

	skips := []int{}
	for i, file := range files {
		if _, ok := keep[strings.Join(file.Path, "/")]; !ok {
			skips = append(skips, i)
		}
	}

	if len(skips) == len(files) {
		return nil, ErrAllFilesSkipped
	}
	if len(skips) == 0 {
		return nil, nil
	}

	return skips, nil
}

// Acquire registers the torrent paused, waits for the backend to reflect it,
// marks deselected files as "do not download" and finally starts the torrent
// unless the caller asked for it to stay paused.
func (o *Orchestrator) Acquire(ctx context.Context, req v1.AcquisitionRequest, record *metainfo.Record) Result {
	result := Result{
		Hash:  record.InfoHash(),
		Stage: StageRegistering,
	}

	log.Debug().
		Str("hash", result.Hash).
		Str("identifier", req.Identifier).
		Msg("Acquiring torrent")

	// The torrent always starts out paused so that its file list can be
	// restricted before any piece is downloaded; the caller's paused
	// preference only decides whether the final start stage runs.
	if err := o.backend.AddTorrent(ctx, backend.AddOptions{
		URLs:                   req.Identifier,
		SavePath:               req.SavePath,
		Paused:                 true,
		Sequential:             req.Sequential,
		FirstLastPiecePriority: req.FirstLastPiecePriority,
		ContentLayout:          req.ContentLayout,
	}); err != nil {
		result.Err = err

		return result
	}

	result.Stage = StageAwaitingRegistration
	if err := Poll(ctx, o.attempts, o.interval, func(ctx context.Context) (bool, error) {
		t, err := o.backend.LatestTorrent(ctx)
		if err != nil {
			if errors.Is(err, backend.ErrNoTorrents) {
				return false, nil
			}

			return false, err
		}

		return strings.EqualFold(t.Hash, result.Hash), nil
	}); err != nil {
		if errors.Is(err, ErrRetriesExceeded) {
			err = fmt.Errorf("%w: %v", ErrRegistrationTimeout, err)
		}
		result.Err = err

		return result
	}

	skips, err := SkipIndices(record.Files, req.SelectedFilePaths)
	if err != nil {
		result.Stage = StageApplyingFilePriorities
		result.Err = err

		return result
	}

	if len(skips) > 0 {
		result.Stage = StageApplyingFilePriorities
		if err := o.backend.SetFilePriority(ctx, result.Hash, skips, 0); err != nil {
			result.Err = err

			return result
		}
	}

	if !req.StartPaused {
		result.Stage = StageStarting
		if err := o.backend.StartTorrents(ctx, []string{result.Hash}); err != nil {
			result.Err = err

			return result
		}
	}

	result.Stage = StageDone

	log.Debug().
		Str("hash", result.Hash).
		Msg("Acquired torrent")

	return result
}
