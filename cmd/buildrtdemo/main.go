// Command buildrtdemo runs one seeded multi-page build end to end against
// fake collaborators (internal/ports/fakes), printing the build's event
// stream to stdout as it would reach a browser's EventSource. Grounded on
// the teacher's cmd/db-restore for the flag-parsing/sequential-step/die
// shape, and cmd/chum for the logger setup and signal handling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/antigravity-dev/webforge/internal/buildstate"
	"github.com/antigravity-dev/webforge/internal/eventbus"
	"github.com/antigravity-dev/webforge/internal/lock"
	"github.com/antigravity-dev/webforge/internal/orchestrator"
	"github.com/antigravity-dev/webforge/internal/ports"
	"github.com/antigravity-dev/webforge/internal/ports/fakes"
	"github.com/antigravity-dev/webforge/internal/thumbnail"
	"github.com/antigravity-dev/webforge/internal/versionstore"
)

func configureLogger(dev bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if dev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "buildrtdemo: "+format+"\n", args...)
	os.Exit(1)
}

func seedPages() []buildstate.PageSpec {
	return []buildstate.PageSpec{
		{ID: "home", Name: "Home", Path: "/", IsMain: true},
		{ID: "about", Name: "About", Path: "/about"},
	}
}

func seedProductDoc() orchestrator.ProductDoc {
	return orchestrator.ProductDoc{
		Overview: "A two-page marketing site for a small coffee roastery.",
		Sections: []orchestrator.PageSection{
			{Name: "Hero", Description: "Bold headline and call to action", Priority: "high"},
			{Name: "Story", Description: "Roastery origin story", Priority: "medium"},
		},
		DesignRequirements: orchestrator.DesignRequirements{
			Style:      "modern",
			Colors:     []string{"#3b2f2f", "#e8dcc8"},
			Typography: "sans-serif",
			Mood:       "warm",
		},
	}
}

const homePageHTML = "```html\n<!DOCTYPE html><html><body>" +
	"<nav><a href=\"/\">Home</a><a href=\"/about\">About</a></nav>" +
	"<h1>Freshly Roasted, Daily</h1></body></html>\n```"

const aboutPageHTML = "```html\n<!DOCTYPE html><html><body>" +
	"<nav><a href=\"/\">Home</a><a href=\"/about\">About</a></nav>" +
	"<h1>Our Story</h1></body></html>\n```"

func main() {
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	projectID := flag.String("project", "demo-project", "project id to seed the build under")
	userID := flag.String("user", "demo-user", "user id attributed to the build")
	stateDir := flag.String("state-dir", "", "directory for the demo's sqlite stores (default: a temp dir)")
	lockPath := flag.String("lock", filepath.Join(os.TempDir(), "buildrtdemo.lock"), "single-instance lock file path")
	flag.Parse()

	logger := configureLogger(*dev)
	slog.SetDefault(logger)

	lockFile, err := lock.Acquire(*lockPath)
	if err != nil {
		die("%v", err)
	}
	defer lock.Release(lockFile)

	dir := *stateDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "buildrtdemo-")
		if err != nil {
			die("create state dir: %v", err)
		}
		defer os.RemoveAll(dir)
	}
	logger.Info("buildrtdemo starting", "project", *projectID, "state_dir", dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	versions, err := versionstore.Open(ctx, filepath.Join(dir, "versions.db"))
	if err != nil {
		die("open version store: %v", err)
	}
	defer versions.Close()

	thumbs, err := thumbnail.Open(ctx, filepath.Join(dir, "thumbnails.db"))
	if err != nil {
		die("open thumbnail store: %v", err)
	}
	defer thumbs.Close()

	bus := eventbus.New()
	blobs := fakes.NewBlobStore()
	sessions := orchestrator.NewSessionStore()

	pages := seedPages()
	sess := orchestrator.NewSession("demo-session-1", *projectID, *userID, pages, seedProductDoc())
	sessions.Put(sess)

	queue := thumbnail.NewQueue(thumbs, sessionPageSource{
		Sessions:  sessions,
		SessionID: sess.ID,
		Design:    thumbnail.DesignSystem{Colors: map[string]string{"background": "#e8dcc8"}},
	}, blobs, &fakes.BrowserFactory{}, logger)
	queue.Start(ctx)
	defer queue.Stop()

	recorder := versionstore.NewRecorder(versions, func(projectID string) []versionstore.PageRecord {
		records := make([]versionstore.PageRecord, 0, len(sess.Pages))
		for _, p := range sess.Pages {
			records = append(records, versionstore.PageRecord{
				ID: p.ID, Name: p.Name, Path: p.Path, IsHome: p.IsMain,
				HTML: sess.DraftHTML[p.ID], JS: sess.DraftJS[p.ID],
			})
		}
		return records
	})

	transport := fakes.NewTransport(
		ports.ChatResponse{Content: homePageHTML},
		ports.ChatResponse{Content: aboutPageHTML},
	)
	multi := orchestrator.NewMulti(transportGenerator{Transport: transport, Model: "demo-model"}, blobs, bus, recorder, queue, 3)

	eventsDone := make(chan struct{})
	events, unsubscribe := bus.Subscribe(sess.ID)
	go func() {
		defer close(eventsDone)
		for ev := range events {
			if err := eventbus.WriteSSE(os.Stdout, ev); err != nil {
				logger.Warn("write event", "error", err)
			}
			if ev.Kind == eventbus.KindBuildComplete {
				return
			}
		}
	}()

	multi.StreamProgress(ctx, sess)
	<-eventsDone
	unsubscribe()

	completed, failed := 0, 0
	for _, p := range sess.Pages {
		if sess.Completed[p.ID] {
			completed++
		}
		if sess.Failed[p.ID] {
			failed++
		}
	}
	fmt.Printf("\nbuild finished: %d completed, %d failed\n", completed, failed)

	branch, err := versions.EnsureDefaultBranch(ctx, *projectID)
	if err == nil {
		history, err := versions.List(ctx, branch.ID, false)
		if err == nil {
			fmt.Printf("version history (%d):\n", len(history))
			for _, v := range history {
				fmt.Printf("  - %s  %s\n", v.ID, strings.Join(v.ChangeSummary.TasksCompleted, ", "))
			}
		}
	}

	// Give the cron-scheduled thumbnail sweep a moment to claim and run
	// the jobs Multi.StreamProgress just enqueued before the process exits.
	time.Sleep(2 * time.Second)
	for _, p := range pages {
		job, err := thumbs.LatestJob(ctx, *projectID, p.ID, thumbnail.JobThumbnail)
		if err != nil || job == nil {
			continue
		}
		fmt.Printf("thumbnail for %s: %s (%s)\n", p.Name, job.Status, job.ImageURL)
	}

	if err := runSinglePageDemo(ctx, logger, dir); err != nil {
		logger.Warn("single-page demo failed", "error", err)
	}
}
