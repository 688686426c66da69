// Package recorder is the user-facing facade. A Project wires one session,
// registry, serializer and tracker around an engine; a Manager keeps the
// open projects of a process and batches their exports.
package recorder

import (
	"fmt"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/jemviewer/plotrec/core/archive"
	"github.com/jemviewer/plotrec/core/callsite"
	coreerrors "github.com/jemviewer/plotrec/core/errors"
	"github.com/jemviewer/plotrec/core/graph"
	"github.com/jemviewer/plotrec/core/recorderconfig"
	"github.com/jemviewer/plotrec/core/registry"
	"github.com/jemviewer/plotrec/core/serialize"
	"github.com/jemviewer/plotrec/core/session"
	"github.com/jemviewer/plotrec/core/track"
	"github.com/jemviewer/plotrec/core/viewer"
)

type Options struct {
	Clock  clock.Clock
	Logger *zap.Logger
	// Policy defaults to logging calls issued from the file that created
	// the project.
	Policy callsite.Policy
	Config recorderconfig.Config
	// Launch overrides viewer startup; Show uses viewer.Launch by default.
	Launch func(archivePath string, options viewer.Options) error
}

// Project is one recording context over one engine.
type Project struct {
	id         int
	engine     graph.Engine
	session    *session.Session
	registry   *registry.Registry
	serializer *serialize.Serializer
	tracker    *track.Tracker
	logger     *zap.Logger
	config     recorderconfig.Config
	launch     func(archivePath string, options viewer.Options) error
	figures    []*track.Node
}

// NewProject builds a fully wired project. The calling file becomes the
// logging origin unless options carry an explicit policy.
func NewProject(id int, engine graph.Engine, options Options) (*Project, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := options.Policy
	if policy.Origin == "" {
		policy = callsite.CapturePolicy(1)
	}
	exclude, err := track.CompileExclude(options.Config.Track.ExtraExclude...)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "project_exclude", "fix the extra_exclude patterns in the project config", false)
	}

	sess, err := session.New(session.Options{Clock: options.Clock, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	reg := registry.New(logger)
	serializer := serialize.New(sess, reg, logger)
	tracker := track.NewTracker(sess, reg, serializer, track.Options{
		Policy:  policy,
		Exclude: exclude,
		Logger:  logger,
	})
	launch := options.Launch
	if launch == nil {
		launch = viewer.Launch
	}
	logger.Debug("project started",
		zap.Int("project_id", id),
		zap.String("session_id", sess.ID()),
		zap.String("origin", policy.Origin))
	return &Project{
		id:         id,
		engine:     engine,
		session:    sess,
		registry:   reg,
		serializer: serializer,
		tracker:    tracker,
		logger:     logger,
		config:     options.Config,
		launch:     launch,
	}, nil
}

func (p *Project) ID() int {
	return p.id
}

func (p *Project) Session() *session.Session {
	return p.session
}

func (p *Project) Tracker() *track.Tracker {
	return p.tracker
}

// Figure returns the wrapped surface with the given ordinal, creating any
// surfaces up to it. The first surface exists implicitly in the consumer;
// every further one replays as an add_figure() setup command. Requesting a
// surface always clears it, so replay starts from a blank state.
func (p *Project) Figure(n int) (*track.Node, error) {
	if n < 0 {
		return nil, coreerrors.Wrap(fmt.Errorf("figure ordinal %d", n), coreerrors.CategoryInvalidInput, "figure_ordinal", "figure ordinals start at 0", false)
	}
	for len(p.figures) <= n {
		index := len(p.figures)
		figure, err := p.engine.NewFigure()
		if err != nil {
			return nil, fmt.Errorf("create figure %d: %w", index, err)
		}
		p.registry.RegisterSubtree(figure, fmt.Sprintf("figs[%d]", index))
		node, err := p.tracker.Wrap(figure)
		if err != nil {
			return nil, fmt.Errorf("wrap figure %d: %w", index, err)
		}
		if index > 0 {
			p.session.AddSetupLog("add_figure()")
		}
		p.figures = append(p.figures, node)
	}

	node := p.figures[n]
	// clear is on the exclusion denylist, so the node would never log it;
	// the replay still needs the surface blanked before its commands run.
	if _, err := node.Object().Invoke("clear", nil, nil); err != nil {
		p.logger.Warn("figure clear failed",
			zap.Int("figure", n),
			zap.Error(err))
	}
	p.session.AddLog(fmt.Sprintf("figs[%d].clear()", n))
	return node, nil
}

// RecordedSections returns the replay text as the consumer will see it.
func (p *Project) RecordedSections() (setupText, mainText string) {
	return archive.Sections(p.session)
}

// Save exports the project to destination. With cleanup the session is
// reset afterwards and the project cannot record further.
func (p *Project) Save(destination string, cleanup bool) (archive.ExportResult, error) {
	result, err := archive.Export(p.session, destination)
	if err != nil {
		return archive.ExportResult{}, err
	}
	p.logger.Info("project saved",
		zap.Int("project_id", p.id),
		zap.String("path", result.Path),
		zap.Int("blobs", result.BlobCount))
	if cleanup {
		p.session.Reset()
		p.figures = nil
	}
	return result, nil
}

// Show exports a preview container into the session staging directory and
// opens it in the viewer. The session stays intact.
func (p *Project) Show() error {
	destination := filepath.Join(p.session.TempDir(), fmt.Sprintf("preview_%d%s", p.id, archive.ContainerExtension))
	result, err := p.Save(destination, false)
	if err != nil {
		return err
	}
	return p.launch(result.Path, viewer.Options{
		AppPath: p.config.Viewer.AppPath,
		Logger:  p.logger,
	})
}

// Manager tracks the open projects of a process, assigning ordinal ids.
type Manager struct {
	options  Options
	logger   *zap.Logger
	projects []*Project
}

func NewManager(options Options) *Manager {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{options: options, logger: logger}
}

// NewProject opens a project over engine and takes ownership of it.
func (m *Manager) NewProject(engine graph.Engine) (*Project, error) {
	options := m.options
	if options.Policy.Origin == "" {
		options.Policy = callsite.CapturePolicy(1)
	}
	project, err := NewProject(len(m.projects), engine, options)
	if err != nil {
		return nil, err
	}
	m.projects = append(m.projects, project)
	return project, nil
}

// Projects returns the open projects in creation order.
func (m *Manager) Projects() []*Project {
	return append([]*Project{}, m.projects...)
}

// SaveAll exports every open project to {base}_{id}.jem3 and stops on the
// first failure.
func (m *Manager) SaveAll(base string) ([]archive.ExportResult, error) {
	results := make([]archive.ExportResult, 0, len(m.projects))
	for _, project := range m.projects {
		destination := fmt.Sprintf("%s_%d%s", base, project.ID(), archive.ContainerExtension)
		result, err := project.Save(destination, false)
		if err != nil {
			return results, fmt.Errorf("save project %d: %w", project.ID(), err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ShowAll opens every project's preview, reporting the first failure after
// trying them all.
func (m *Manager) ShowAll() error {
	var firstErr error
	for _, project := range m.projects {
		if err := project.Show(); err != nil {
			m.logger.Warn("show failed",
				zap.Int("project_id", project.ID()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Reset releases every open project.
func (m *Manager) Reset() {
	for _, project := range m.projects {
		project.session.Reset()
	}
	m.projects = nil
}
