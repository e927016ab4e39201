// Package command contains the operations that produce archive documents.
// A command reads one consistent snapshot of the school data, lays out the
// register pages and hands the finished document to the archive sink.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/classbook/register-archive/internal/application/query"
	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/internal/infrastructure/storage"
	"github.com/classbook/register-archive/internal/interface/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATORS
// ══════════════════════════════════════════════════════════════════════════════

// Renderer lays out pages of markup and writes the finished document.
type Renderer interface {
	presenter.Canvas

	// PageNo returns the number of pages added so far.
	PageNo() int

	// DeletePage removes page n (1-based).
	DeletePage(n int) error

	Output(w io.Writer) error
}

// RendererFactory creates a fresh renderer for one document.
type RendererFactory func(title, author string) Renderer

// Sink stores finished documents.
type Sink interface {
	Save(ctx context.Context, folder storage.Folder, name string, write func(io.Writer) error) (*storage.Saved, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE REGISTER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// Variant selects which register is produced.
type Variant string

const (
	VariantTeacher Variant = "teacher"
	VariantSupport Variant = "support"
	VariantClass   Variant = "class"
)

// Kinds returns the subject kinds whose assignments belong to the variant.
func (v Variant) Kinds() []school.SubjectKind {
	switch v {
	case VariantTeacher:
		return []school.SubjectKind{school.SubjectOrdinary, school.SubjectReligion, school.SubjectCivics}
	case VariantSupport:
		return []school.SubjectKind{school.SubjectSupport}
	default:
		return nil
	}
}

// GenerateRegisterCommand asks for the register of one teacher or class.
type GenerateRegisterCommand struct {
	Variant  Variant
	EntityID int64 // teacher ID, or class ID for VariantClass
}

// Validate checks the command.
func (c GenerateRegisterCommand) Validate() error {
	switch c.Variant {
	case VariantTeacher, VariantSupport, VariantClass:
	default:
		return shared.ErrUnknownVariant
	}
	if c.EntityID <= 0 {
		return errors.New("generate_register: entity id must be positive")
	}
	return nil
}

// Status is the result of one document.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped-no-data"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to one document.
type Outcome struct {
	Variant  Variant
	EntityID int64
	Label    string // teacher full name or class name
	Status   Status
	Reason   string
	Path     string
	Digest   string
	Bytes    int64
	Pages    int
	Err      error
}

// document is the destination resolved while reading.
type document struct {
	folder storage.Folder
	name   string
	title  string
	author string
}

// Deps are the collaborators of GenerateRegisterHandler.
type Deps struct {
	Source      school.Source
	Calendar    *period.Calendar
	Scales      register.Scales
	Markers     register.ScoreMarkers
	NewRenderer RendererFactory
	Sink        Sink
	Logger      *slog.Logger
}

// GenerateRegisterHandler produces one register document.
type GenerateRegisterHandler struct {
	source      school.Source
	calendar    *period.Calendar
	sections    *query.CompileSectionHandler
	days        *query.CompileClassDayHandler
	presenter   *presenter.RegisterPresenter
	newRenderer RendererFactory
	sink        Sink
	logger      *slog.Logger
}

// NewGenerateRegisterHandler creates the handler.
func NewGenerateRegisterHandler(d Deps) *GenerateRegisterHandler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Markers == (register.ScoreMarkers{}) {
		d.Markers = register.DefaultScoreMarkers()
	}
	return &GenerateRegisterHandler{
		source:      d.Source,
		calendar:    d.Calendar,
		sections:    query.NewCompileSectionHandler(d.Scales, d.Markers, d.Logger),
		days:        query.NewCompileClassDayHandler(d.Logger),
		presenter:   presenter.NewRegisterPresenter(d.Calendar.Year(), d.Markers),
		newRenderer: d.NewRenderer,
		sink:        d.Sink,
		logger:      d.Logger,
	}
}

// Handle generates the document. The outcome is always returned; the error
// is non-nil exactly when the outcome is StatusFailed.
func (h *GenerateRegisterHandler) Handle(ctx context.Context, cmd GenerateRegisterCommand) (*Outcome, error) {
	out := &Outcome{Variant: cmd.Variant, EntityID: cmd.EntityID}
	if err := cmd.Validate(); err != nil {
		return h.fail(out, shared.WrapError("register", "Generate", shared.ErrValidation, err.Error(), err))
	}

	var (
		doc *document
		r   Renderer
	)
	err := h.source.Snapshot(ctx, func(store school.Store) error {
		var err error
		switch cmd.Variant {
		case VariantClass:
			doc, r, err = h.classRegister(ctx, store, cmd.EntityID, out)
		default:
			doc, r, err = h.assignmentRegister(ctx, store, cmd, out)
		}
		return err
	})
	if err != nil {
		return h.fail(out, err)
	}

	if r == nil || r.PageNo() == 0 {
		out.Status = StatusSkipped
		if out.Reason == "" {
			out.Reason = "no pages"
		}
		h.logger.Info("register skipped",
			"variant", cmd.Variant, "entity_id", cmd.EntityID, "label", out.Label, "reason", out.Reason)
		return out, nil
	}

	out.Pages = r.PageNo()
	saved, err := h.sink.Save(ctx, doc.folder, doc.name, r.Output)
	if err != nil {
		return h.fail(out, err)
	}
	out.Status = StatusCreated
	out.Path = saved.Path
	out.Digest = saved.Digest
	out.Bytes = saved.Bytes

	h.logger.Info("register created",
		"variant", cmd.Variant,
		"entity_id", cmd.EntityID,
		"label", out.Label,
		"pages", out.Pages,
		"path", out.Path,
		"blake2b", out.Digest,
	)
	return out, nil
}

func (h *GenerateRegisterHandler) fail(out *Outcome, err error) (*Outcome, error) {
	out.Status = StatusFailed
	out.Err = err
	out.Reason = err.Error()
	h.logger.Error("register failed",
		"variant", out.Variant, "entity_id", out.EntityID, "label", out.Label, "error", err)
	return out, err
}

// assignmentRegister writes a cover then every term section for each
// assignment of the teacher. A cover followed by nothing is removed.
func (h *GenerateRegisterHandler) assignmentRegister(ctx context.Context, store school.Store, cmd GenerateRegisterCommand, out *Outcome) (*document, Renderer, error) {
	teacher, err := store.TeacherByID(ctx, cmd.EntityID)
	if err != nil {
		return nil, nil, err
	}
	out.Label = teacher.FullName()

	doc := &document{folder: storage.FolderTeacher, name: storage.TeacherFileName(*teacher),
		title: "Registro del docente " + teacher.FullName(), author: teacher.FullName()}
	support := cmd.Variant == VariantSupport
	if support {
		doc.folder = storage.FolderSupport
		doc.name = storage.SupportFileName(*teacher)
		doc.title = "Registro di sostegno " + teacher.FullName()
	}

	assignments, err := store.Assignments(ctx, teacher.ID, cmd.Variant.Kinds())
	if err != nil {
		return nil, nil, shared.WrapError("register", "Generate", shared.ErrStorage, "cannot read assignments", err)
	}
	if len(assignments) == 0 {
		out.Reason = fmt.Sprintf("no %s assignments", cmd.Variant)
		return doc, nil, nil
	}

	r := h.newRenderer(doc.title, doc.author)
	for _, a := range assignments {
		if support {
			h.presenter.SupportCover(r, a)
		} else {
			h.presenter.TeacherCover(r, a)
		}
		cover := r.PageNo()

		for _, term := range h.calendar.Terms() {
			sec, err := h.sections.Handle(ctx, store, query.CompileSectionQuery{Assignment: a, Term: term, Calendar: h.calendar})
			if err != nil {
				return nil, nil, err
			}
			h.presenter.Section(r, sec)
		}

		if r.PageNo() == cover {
			if err := r.DeletePage(cover); err != nil {
				return nil, nil, shared.WrapError("archive", "Render", shared.ErrRender, "cannot remove empty cover", errors.Join(shared.ErrRendererState, err))
			}
			h.logger.Debug("empty assignment dropped", "assignment_id", a.ID, "class", a.Class.String())
		}
	}
	if r.PageNo() == 0 {
		out.Reason = "no lessons, grades or observations"
	}
	return doc, r, nil
}

// classRegister writes, per term, a cover and one page per school day.
func (h *GenerateRegisterHandler) classRegister(ctx context.Context, store school.Store, classID int64, out *Outcome) (*document, Renderer, error) {
	class, err := store.ClassByID(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	out.Label = class.String()
	doc := &document{folder: storage.FolderClass, name: storage.ClassFileName(*class),
		title: "Registro della classe " + class.String()}

	r := h.newRenderer(doc.title, doc.author)
	for _, term := range h.calendar.Terms() {
		h.presenter.ClassCover(r, *class, term)
		days, err := h.days.SchoolDays(ctx, store, *class, term)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range days {
			dayTerm, err := h.calendar.Classify(d)
			if err != nil {
				return nil, nil, err
			}
			day, err := h.days.Handle(ctx, store, query.CompileClassDayQuery{Class: *class, Day: d})
			if err != nil {
				return nil, nil, err
			}
			h.presenter.ClassDay(r, dayTerm, day)
		}
	}
	return doc, r, nil
}
