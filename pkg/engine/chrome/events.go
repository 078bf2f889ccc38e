package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine"
)

// Lifecycle event names reported by Page.lifecycleEvent.
const (
	lifecycleInit = "init"
	lifecycleLoad = "load"
)

// lifecycleProgress maps intermediate lifecycle milestones to a load
// fraction.
var lifecycleProgress = map[string]float64{
	lifecycleInit:          0.1,
	"firstPaint":           0.3,
	"firstContentfulPaint": 0.4,
	"DOMContentLoaded":     0.7,
	"firstMeaningfulPaint": 0.8,
	lifecycleLoad:          1,
}

// onEvent runs on the chromedp event goroutine and must not block: protocol
// calls are queued or run on their own goroutine.
func (h *Handle) onEvent(ev any) {
	switch ev := ev.(type) {
	case *page.EventLifecycleEvent:
		h.bind(ev.FrameID, ev.LoaderID)
		h.cmds.Post(func() { h.lifecycle(ev) })

	case *page.EventFrameNavigated:
		if ev.Frame != nil && ev.Frame.ParentID == "" {
			h.mu.Lock()
			h.docURL = ev.Frame.URL
			h.mu.Unlock()
		}

	case *network.EventRequestWillBeSent:
		if ev.Type != network.ResourceTypeDocument {
			return
		}
		h.bind(ev.FrameID, ev.LoaderID)
		h.mu.Lock()
		if ev.FrameID == h.mainFrame {
			h.documents[ev.RequestID] = ev.LoaderID
		}
		h.mu.Unlock()

	case *network.EventLoadingFailed:
		h.mu.Lock()
		loader, ok := h.documents[ev.RequestID]
		delete(h.documents, ev.RequestID)
		h.mu.Unlock()
		if !ok {
			return
		}
		err := errors.New(ev.ErrorText)
		h.cmds.Post(func() {
			if at, ok := h.attemptFor(loader); ok {
				h.fail(at, err)
			}
		})

	case *network.EventLoadingFinished:
		h.mu.Lock()
		delete(h.documents, ev.RequestID)
		h.mu.Unlock()

	case *fetch.EventRequestPaused:
		h.onRequestPaused(ev)

	case *cdpruntime.EventConsoleAPICalled:
		h.publish(engine.Event{
			Kind:    engine.EventConsoleMessage,
			Attempt: h.currentAttempt(),
			Console: engine.ConsoleMessage{Level: consoleLevel(ev.Type), Text: consoleText(ev.Args)},
		})

	case *cdpruntime.EventExceptionThrown:
		if ev.ExceptionDetails == nil {
			return
		}
		text := ev.ExceptionDetails.Text
		if ex := ev.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
			text = ex.Description
		}
		h.publish(engine.Event{
			Kind:    engine.EventConsoleMessage,
			Attempt: h.currentAttempt(),
			Console: engine.ConsoleMessage{Level: engine.ConsoleError, Text: text},
		})
	}
}

// onBrowserEvent receives browser-wide events. Title changes made by the page
// after load arrive here.
func (h *Handle) onBrowserEvent(ev any) {
	info, ok := ev.(*target.EventTargetInfoChanged)
	if !ok || info.TargetInfo == nil {
		return
	}
	h.mu.Lock()
	ours := h.mainFrame != "" && string(info.TargetInfo.TargetID) == string(h.mainFrame)
	h.mu.Unlock()
	if !ours {
		return
	}
	title := info.TargetInfo.Title
	h.cmds.Post(func() {
		if at := h.currentAttempt(); at != 0 {
			h.setTitle(at, title)
		}
	})
}

// bind ties a main-frame loader seen for the first time to the attempt whose
// command is running. Queued commands have not started yet, so they cannot
// own it.
func (h *Handle) bind(frame cdp.FrameID, loader cdp.LoaderID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if frame != h.mainFrame || loader == "" {
		return
	}
	if _, ok := h.loaders[loader]; !ok {
		h.loaders[loader] = h.active
	}
}

// lifecycle runs on the worker, after any navigate request that produced the
// loader has returned.
func (h *Handle) lifecycle(ev *page.EventLifecycleEvent) {
	h.mu.Lock()
	frame := h.mainFrame
	h.mu.Unlock()
	if ev.FrameID != frame {
		return
	}

	at, ok := h.attemptFor(ev.LoaderID)
	if !ok {
		return
	}

	switch ev.Name {
	case lifecycleInit:
		h.publish(engine.Event{Kind: engine.EventNavigationStarted, Attempt: at})
		h.publish(engine.Event{Kind: engine.EventProgressChanged, Attempt: at, Progress: lifecycleProgress[lifecycleInit]})
	case lifecycleLoad:
		h.refreshHistory()
		h.publish(engine.Event{Kind: engine.EventProgressChanged, Attempt: at, Progress: 1})
		h.publish(engine.Event{Kind: engine.EventNavigationFinished, Attempt: at})
		h.fetchTitle(at)
	default:
		if p, ok := lifecycleProgress[ev.Name]; ok {
			h.publish(engine.Event{Kind: engine.EventProgressChanged, Attempt: at, Progress: p})
		}
	}
}

// attemptFor resolves the attempt a loader belongs to. Loaders that were not
// started by Navigate (history steps, reloads, in-page link clicks) belong to
// the attempt that was running when they appeared. Nothing is attributed
// before the first request, nor to an attempt that already failed.
func (h *Handle) attemptFor(loader cdp.LoaderID) (engine.Attempt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	at, ok := h.loaders[loader]
	if !ok {
		at = h.active
		if loader != "" {
			h.loaders[loader] = at
		}
	}
	if at == 0 || at == h.failed {
		return 0, false
	}
	return at, true
}

func (h *Handle) currentAttempt() engine.Attempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *Handle) onRequestPaused(ev *fetch.EventRequestPaused) {
	h.mu.Lock()
	rules, docURL, frame := h.rules, h.docURL, h.mainFrame
	h.mu.Unlock()

	if ev.ResourceType == network.ResourceTypeDocument && ev.FrameID == frame {
		docURL = ""
	}
	reqURL := ""
	if ev.Request != nil {
		reqURL = ev.Request.URL
	}
	block := rules != nil && rules.Match(reqURL, docURL)

	go func() {
		c := chromedp.FromContext(h.ctx)
		if c == nil || c.Target == nil {
			return
		}
		ctx := cdp.WithExecutor(h.ctx, c.Target)

		var err error
		if block {
			h.log.Debug("blocked request", zap.String("url", reqURL))
			err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
		} else {
			err = fetch.ContinueRequest(ev.RequestID).Do(ctx)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			h.log.Debug("resolve paused request", zap.String("url", reqURL), zap.Error(err))
		}
	}()
}

func requestPatterns(rules *contentblock.RuleSet) []*fetch.RequestPattern {
	globs := rules.URLPatterns()
	out := make([]*fetch.RequestPattern, 0, len(globs))
	for _, g := range globs {
		out = append(out, &fetch.RequestPattern{URLPattern: g, RequestStage: fetch.RequestStageRequest})
	}
	return out
}

func consoleLevel(t cdpruntime.APIType) engine.ConsoleLevel {
	switch t {
	case cdpruntime.APITypeDebug:
		return engine.ConsoleDebug
	case cdpruntime.APITypeInfo:
		return engine.ConsoleInfo
	case cdpruntime.APITypeWarning:
		return engine.ConsoleWarning
	case cdpruntime.APITypeError, cdpruntime.APITypeAssert:
		return engine.ConsoleError
	default:
		return engine.ConsoleLog
	}
}

// consoleText renders console arguments the way DevTools prints them: string
// values unquoted, everything else by value or description.
func consoleText(args []*cdpruntime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if len(a.Value) == 0 {
			parts = append(parts, a.Description)
			continue
		}
		var s string
		if err := json.Unmarshal(a.Value, &s); err == nil {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, string(a.Value))
	}
	return strings.Join(parts, " ")
}
