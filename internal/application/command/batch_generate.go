package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/classbook/register-archive/internal/domain/school"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATCH GENERATE COMMAND
// Runs many documents with bounded concurrency. A failed document is
// reported in its outcome and never stops the others.
// ══════════════════════════════════════════════════════════════════════════════

// BatchGenerateCommand lists the documents to produce.
type BatchGenerateCommand struct {
	Commands []GenerateRegisterCommand
}

// BatchResult collects the outcomes in the order of the commands.
type BatchResult struct {
	RunID    string
	Outcomes []*Outcome
	Duration time.Duration
}

// Count returns how many outcomes have the given status.
func (r *BatchResult) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any document failed.
func (r *BatchResult) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// Generator produces one document; GenerateRegisterHandler implements it.
type Generator interface {
	Handle(ctx context.Context, cmd GenerateRegisterCommand) (*Outcome, error)
}

// BatchGenerateHandler runs BatchGenerateCommand.
type BatchGenerateHandler struct {
	generator   Generator
	concurrency int
	logger      *slog.Logger
}

// NewBatchGenerateHandler creates the handler. concurrency below 1 runs
// documents one at a time.
func NewBatchGenerateHandler(generator Generator, concurrency int, logger *slog.Logger) *BatchGenerateHandler {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchGenerateHandler{generator: generator, concurrency: concurrency, logger: logger}
}

// Handle runs every command. Cancelling ctx stops documents not yet started;
// those are reported as failed with the context error.
func (h *BatchGenerateHandler) Handle(ctx context.Context, cmd BatchGenerateCommand) *BatchResult {
	start := time.Now()
	result := &BatchResult{
		RunID:    uuid.NewString(),
		Outcomes: make([]*Outcome, len(cmd.Commands)),
	}
	logger := h.logger.With("run_id", result.RunID)
	logger.Info("batch started", "documents", len(cmd.Commands), "concurrency", h.concurrency)

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, c := range cmd.Commands {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				result.Outcomes[i] = &Outcome{Variant: c.Variant, EntityID: c.EntityID, Status: StatusFailed, Reason: err.Error(), Err: err}
				return nil
			}
			out, _ := h.generator.Handle(ctx, c)
			if out == nil {
				out = &Outcome{Variant: c.Variant, EntityID: c.EntityID, Status: StatusFailed, Reason: "no outcome"}
			}
			result.Outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	logger.Info("batch finished",
		"created", result.Count(StatusCreated),
		"skipped", result.Count(StatusSkipped),
		"failed", result.Count(StatusFailed),
		"duration", result.Duration,
	)
	return result
}

// ListTargets builds one command per teacher (or class) the variant applies to.
func ListTargets(ctx context.Context, source school.Source, v Variant) ([]GenerateRegisterCommand, error) {
	var ids []int64
	err := source.Snapshot(ctx, func(store school.Store) error {
		var err error
		if v == VariantClass {
			ids, err = store.ClassIDs(ctx)
		} else {
			ids, err = store.TeacherIDs(ctx, v.Kinds())
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	cmds := make([]GenerateRegisterCommand, len(ids))
	for i, id := range ids {
		cmds[i] = GenerateRegisterCommand{Variant: v, EntityID: id}
	}
	return cmds, nil
}
