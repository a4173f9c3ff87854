package ingress

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/apierrors"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/channel"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/dispatch"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/modellist"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/modelmap"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/telemetry"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/thinking"
)

// Registry looks up the Translator for a family.
type Registry map[family.Family]family.Translator

// Router wires channel resolution, translation, and dispatch into an HTTP
// handler for the three supported wire families.
type Router struct {
	resolver    *channel.Resolver
	dispatcher  *dispatch.Dispatcher
	translators Registry
	thresholds  map[family.Family]thinking.Thresholds
	telemetry   *telemetry.Settings
	tracer      trace.Tracer
}

// New builds a Router. thresholds may be nil, in which case every family
// uses thinking.DefaultThresholds. If telemetrySettings is nil, telemetry is
// disabled.
func New(resolver *channel.Resolver, dispatcher *dispatch.Dispatcher, translators Registry, thresholds map[family.Family]thinking.Thresholds, telemetrySettings *telemetry.Settings) *Router {
	if telemetrySettings == nil {
		telemetrySettings = telemetry.DefaultSettings()
	}
	return &Router{
		resolver:    resolver,
		dispatcher:  dispatcher,
		translators: translators,
		thresholds:  thresholds,
		telemetry:   telemetrySettings,
		tracer:      telemetry.GetTracer(telemetrySettings),
	}
}

// Mount attaches the router's routes to r under a {customKey} prefix.
func (rt *Router) Mount(r chi.Router) {
	r.Route("/{customKey}", func(r chi.Router) {
		r.Post("/v1/chat/completions", rt.handleChat)
		r.Post("/v1/messages", rt.handleChat)
		r.Post("/v1beta/models/{modelAndOp}", rt.handleChat)
		r.Get("/v1/models", rt.handleListModels)
		r.Get("/v1beta/models", rt.handleListModels)
	})
}

func (rt *Router) threshold(f family.Family) thinking.Thresholds {
	if t, ok := rt.thresholds[f]; ok {
		return t
	}
	return thinking.DefaultThresholds()
}

func (rt *Router) handleListModels(w http.ResponseWriter, r *http.Request) {
	customKey := chi.URLParam(r, "customKey")
	ch, err := rt.resolver.Resolve(r.Context(), customKey)
	if err != nil {
		rt.writeResolveError(w, family.OpenAI, err)
		return
	}

	tr := rt.translators[ch.Family]
	body, err := modellist.Encode(ch, tr)
	if err != nil {
		apierrors.Wrap(apierrors.KindInternal, "failed to encode model list", err).WriteHTTP(w, ch.Family)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := rt.tracer.Start(r.Context(), "ingress.handleChat")
	defer span.End()

	ingressFamily, _, ok := Classify(r.URL.Path[len("/"+chi.URLParam(r, "customKey")):])
	if !ok {
		apierrors.New(apierrors.KindNotFound, "unrecognized endpoint").WriteHTTP(w, family.OpenAI)
		return
	}
	span.SetAttributes(attribute.String("ingress.family", string(ingressFamily)))

	ingressTr := rt.translators[ingressFamily]

	customKey := chi.URLParam(r, "customKey")
	ch, err := rt.resolver.Resolve(ctx, customKey)
	if err != nil {
		telemetry.RecordErrorOnSpan(span, err)
		rt.writeResolveError(w, ingressFamily, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		telemetry.RecordErrorOnSpan(span, err)
		apierrors.New(apierrors.KindInvalidRequest, "failed to read request body").WriteHTTP(w, ingressFamily)
		return
	}

	req, err := ingressTr.DecodeRequest(body)
	if err != nil {
		telemetry.RecordErrorOnSpan(span, err)
		apierrors.Wrap(apierrors.KindInvalidRequest, "failed to decode request", err).WriteHTTP(w, ingressFamily)
		return
	}

	// Gemini's model ID and its streaming/non-streaming choice live in the
	// path rather than the body.
	if ingressFamily == family.Gemini {
		model, isStream := GeminiModelFromPath(r.URL.Path[len("/"+customKey):])
		req.Model = model
		req.Stream = isStream
	}

	req.Model = modelmap.Apply(ch.ModelMap, req.Model)
	if req.Thinking != nil {
		target := rt.threshold(ch.Family)
		budget := thinking.Resolve(req.Thinking, target)
		req.Thinking = &neutral.ThinkingSpec{BudgetTokens: budget, Effort: target.FromBudget(budget)}
	}

	upstreamTr := rt.translators[ch.Family]
	upstreamBody, err := upstreamTr.EncodeRequest(req)
	if err != nil {
		telemetry.RecordErrorOnSpan(span, err)
		apierrors.Wrap(apierrors.KindInternal, "failed to encode upstream request", err).WriteHTTP(w, ingressFamily)
		return
	}

	span.SetAttributes(telemetry.GetBaseAttributes(string(ch.Family), req.Model, rt.telemetry, nil)...)
	if rt.telemetry.RecordInputs {
		span.SetAttributes(attribute.Int("proxy.request.body_bytes", len(upstreamBody)))
	}

	dispatchReq := dispatch.Request{
		Channel: ch,
		Method:  http.MethodPost,
		Path:    upstreamPath(ch.Family, req),
		Body:    upstreamBody,
	}

	if req.Stream {
		rt.handleStream(ctx, w, dispatchReq, upstreamTr, ingressTr)
		return
	}
	rt.handleUnary(ctx, w, dispatchReq, upstreamTr, ingressTr, ingressFamily)
}

func (rt *Router) handleUnary(ctx context.Context, w http.ResponseWriter, dispatchReq dispatch.Request, upstreamTr, ingressTr family.Translator, ingressFamily family.Family) {
	resp, err := rt.dispatcher.Do(ctx, dispatchReq, upstreamTr)
	if err != nil {
		var apiErr *apierrors.Error
		if errors.As(err, &apiErr) {
			apiErr.WriteHTTP(w, ingressFamily)
			return
		}
		apierrors.Wrap(apierrors.KindUpstreamError, "upstream request failed", err).WriteHTTP(w, ingressFamily)
		return
	}
	if resp.StatusCode >= 400 {
		apierrors.New(apierrors.KindUpstreamError, "upstream returned an error").WriteHTTP(w, ingressFamily)
		return
	}

	neutralResp, err := upstreamTr.DecodeResponse(resp.Body)
	if err != nil {
		apierrors.Wrap(apierrors.KindInternal, "failed to decode upstream response", err).WriteHTTP(w, ingressFamily)
		return
	}

	out, err := ingressTr.EncodeResponse(neutralResp)
	if err != nil {
		apierrors.Wrap(apierrors.KindInternal, "failed to encode response", err).WriteHTTP(w, ingressFamily)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (rt *Router) handleStream(ctx context.Context, w http.ResponseWriter, dispatchReq dispatch.Request, upstreamTr, ingressTr family.Translator) {
	body, status, err := rt.dispatcher.DoStream(ctx, dispatchReq, upstreamTr)
	if err != nil {
		apierrors.Wrap(apierrors.KindUpstreamError, "upstream stream request failed", err).WriteHTTP(w, ingressTr.Family())
		return
	}
	defer body.Close()

	if status >= 400 {
		apierrors.New(apierrors.KindUpstreamError, "upstream returned an error").WriteHTTP(w, ingressTr.Family())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	encoder := ingressTr.NewStreamEncoder()
	_ = upstreamTr.DecodeStream(body, func(ev neutral.StreamEvent) error {
		if err := encoder.Encode(w, ev); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}

func (rt *Router) writeResolveError(w http.ResponseWriter, f family.Family, err error) {
	if err == channel.ErrChannelNotFound {
		apierrors.New(apierrors.KindUnauthorized, "unknown channel").WriteHTTP(w, f)
		return
	}
	apierrors.Wrap(apierrors.KindInternal, "channel resolution failed", err).WriteHTTP(w, f)
}

func upstreamPath(f family.Family, req *neutral.Request) string {
	switch f {
	case family.Anthropic:
		return "/v1/messages"
	case family.Gemini:
		op := "generateContent"
		if req.Stream {
			op = "streamGenerateContent?alt=sse"
		}
		return "/v1beta/models/" + req.Model + ":" + op
	default:
		return "/v1/chat/completions"
	}
}
