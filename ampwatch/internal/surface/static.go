package surface

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// ClickFunc receives clicks performed by scripts on the static surface.
type ClickFunc func(ctx context.Context, el Element) error

// Static is a Surface that GETs the panel on every query and evaluates the
// script with goja over the parsed document. It exposes a small DOM:
// document.querySelectorAll and document.querySelector with CSS selectors,
// and elements with tagName, getAttribute, innerText, textContent and
// click. Clicks are rejected with ErrReadOnly unless a ClickFunc is set.
type Static struct {
	url     string
	fetcher *Fetcher
	click   ClickFunc
	logger  *slog.Logger
	closed  atomic.Bool
}

// StaticOption configures a Static surface.
type StaticOption func(*Static)

// WithFetcher sets the fetcher used to download the panel.
func WithFetcher(f *Fetcher) StaticOption {
	return func(s *Static) { s.fetcher = f }
}

// WithClickHandler forwards element clicks to fn.
func WithClickHandler(fn ClickFunc) StaticOption {
	return func(s *Static) { s.click = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StaticOption {
	return func(s *Static) { s.logger = l }
}

// NewStatic creates a static surface for pageURL.
func NewStatic(pageURL string, opts ...StaticOption) *Static {
	s := &Static{url: pageURL, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewFetcher()
	}
	return s
}

// URL returns the panel address.
func (s *Static) URL() string { return s.url }

// Ready is true until Close. Each query downloads a fresh document, so
// there is no loading state to wait for.
func (s *Static) Ready() bool { return !s.closed.Load() }

// RunQuery downloads the panel and evaluates script against it.
func (s *Static) RunQuery(ctx context.Context, script string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	body, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return "", err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return "", err
	}
	return s.Eval(ctx, doc, script)
}

// Eval runs script against an already parsed document.
func (s *Static) Eval(ctx context.Context, doc *html.Node, script string) (string, error) {
	vm := goja.New()
	b := &binding{vm: vm, ctx: ctx, click: s.click}
	if err := vm.Set("document", b.document(doc)); err != nil {
		return "", fmt.Errorf("surface: static: bind document: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	v, err := vm.RunString("(" + script + ")()")
	if b.clickErr != nil {
		return "", fmt.Errorf("surface: static: click: %w", b.clickErr)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("surface: static: %w", ctxErr)
		}
		return "", fmt.Errorf("surface: static: eval: %w", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	return v.String(), nil
}

// Close marks the surface closed.
func (s *Static) Close() error {
	s.closed.Store(true)
	return nil
}

// binding exposes parsed nodes to one goja runtime.
type binding struct {
	vm       *goja.Runtime
	ctx      context.Context
	click    ClickFunc
	clickErr error
}

func (b *binding) document(doc *html.Node) *goja.Object {
	obj := b.vm.NewObject()
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		nodes := b.query(doc, call.Argument(0).String())
		items := make([]any, len(nodes))
		for i, n := range nodes {
			items[i] = b.element(n)
		}
		return b.vm.NewArray(items...)
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		nodes := b.query(doc, call.Argument(0).String())
		if len(nodes) == 0 {
			return goja.Null()
		}
		return b.element(nodes[0])
	})
	return obj
}

func (b *binding) query(root *html.Node, sel string) []*html.Node {
	nodes, err := query(root, sel)
	if err != nil {
		panic(b.vm.NewGoError(err))
	}
	return nodes
}

func (b *binding) element(n *html.Node) *goja.Object {
	obj := b.vm.NewObject()
	obj.Set("tagName", strings.ToUpper(n.Data))
	obj.Set("textContent", textContent(n, false))
	obj.Set("innerText", textContent(n, true))
	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		if !ok {
			return goja.Null()
		}
		return b.vm.ToValue(v)
	})
	obj.Set("click", func(goja.FunctionCall) goja.Value {
		err := ErrReadOnly
		if b.click != nil {
			err = b.click(b.ctx, toElement(n))
		}
		if err != nil {
			b.clickErr = err
			panic(b.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	return obj
}
