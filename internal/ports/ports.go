// Package ports defines the seams between the build runtime's core logic
// and the outside world: the LLM transport, blob storage for generated
// assets, and browser automation for thumbnail capture. Concrete
// implementations live beside their consumer (internal/agentbridge,
// internal/thumbnail); internal/ports/fakes provides in-memory stand-ins
// for tests.
package ports

import "context"

// ChatMessage is one turn in an LLM chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// TokenUsage mirrors models.py's TokenUsage.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is one LLM transport call's result.
type ChatResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// LLMTransport is the seam agents.py's chat_complete crosses to reach a
// model provider. Implementations are expected to apply their own
// rate limiting and retries; internal/agentbridge wraps a transport with
// golang.org/x/time/rate before handing it to an agent.
type LLMTransport interface {
	ChatComplete(ctx context.Context, model string, messages []ChatMessage, temperature float64) (ChatResponse, error)
}

// BlobStore persists generated page assets (HTML/JS snapshots, thumbnails,
// OG images) keyed by an opaque path. Grounded on storage.py's blob
// abstraction.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Viewport is a fixed capture size for thumbnail/OG-image screenshots.
type Viewport struct {
	Width  int
	Height int
}

// Browser is one headless page session capable of loading HTML/JS and
// capturing a screenshot.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	SetViewport(ctx context.Context, v Viewport) error
	// Screenshot captures the current page. fullPage true captures the
	// entire scrollable page (thumbnails); false captures only the
	// current viewport (OG images).
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Close() error
}

// BrowserFactory creates Browser sessions. Grounded on thumbnail_queue.py's
// Playwright page-per-job pattern; the Go port wires
// github.com/go-rod/rod behind this interface (internal/thumbnail/capture.go).
type BrowserFactory interface {
	NewBrowser(ctx context.Context) (Browser, error)
}

// InterviewArtifact is the input a build starts from: the brief gathered
// from the product interview, the task breakdown it was turned into, and
// the product document multi-page builds draw page sections and design
// requirements from. Grounded on the interview-to-build handoff described
// in spec.md §2/§4.4-4.5 (BuildSession/BuildPlan are constructed from
// exactly these three pieces).
type InterviewArtifact struct {
	Brief      string
	BuildPlan  []string
	ProductDoc InterviewProductDoc
}

// InterviewProductDoc mirrors orchestrator.ProductDoc's shape at the
// ports boundary, before internal/orchestrator exists to define it for
// packages that cannot import it (internal/agentbridge's planner produces
// this independent of the orchestrator package).
type InterviewProductDoc struct {
	Overview           string
	Sections           []InterviewPageSection
	DesignRequirements InterviewDesignRequirements
}

// InterviewPageSection is one section of an InterviewProductDoc.
type InterviewPageSection struct {
	Name        string
	Description string
	Priority    string
}

// InterviewDesignRequirements is the design brief an InterviewProductDoc
// carries.
type InterviewDesignRequirements struct {
	Style      string
	Colors     []string
	Typography string
	Mood       string
}
