package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Middleware wraps a [http.RoundTripper].
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to [http.RoundTripper].
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// UnauthorizedHandler is told the bearer that a 401 response rejected.
type UnauthorizedHandler func(bearer string)

type anonymousKey struct{}

// Anonymous marks ctx so requests made with it are sent without the bearer credential.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

type chain struct {
	rt    http.RoundTripper
	token *oauth2.Token
}

// Pipeline is the explicit middleware list every API request passes through:
//
//	logging -> rate limit -> extra middleware -> signer -> unauthorized interceptor -> base
//
// The built chain is swapped in a single atomic store, so a request observes either the previous signer or the
// new one and never a partially installed credential.
type Pipeline struct {
	base    http.RoundTripper
	logger  *log.Logger
	limiter *rate.Limiter
	extra   []Middleware

	mu      sync.Mutex
	current atomic.Pointer[chain]
	handler atomic.Pointer[UnauthorizedHandler]
}

// NewPipeline builds a pipeline over base. A nil limiter disables rate limiting.
func NewPipeline(base http.RoundTripper, logger *log.Logger, limiter *rate.Limiter, extra ...Middleware) *Pipeline {
	if base == nil {
		base = http.DefaultTransport
	}
	p := &Pipeline{base: base, logger: logger, limiter: limiter, extra: extra}
	p.rebuild(nil)
	return p
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RoundTrip sends req through the current chain.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	return p.current.Load().rt.RoundTrip(req)
}

// Sign installs token as the credential attached to every subsequent request.
func (p *Pipeline) Sign(token *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuild(token)
}

// Unsign removes the credential.
func (p *Pipeline) Unsign() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuild(nil)
}

// Token returns the installed credential, or nil.
func (p *Pipeline) Token() *oauth2.Token {
	return p.current.Load().token
}

// OnUnauthorized registers the handler called when a signed request is rejected with 401.
func (p *Pipeline) OnUnauthorized(fn UnauthorizedHandler) {
	p.handler.Store(&fn)
}

// rebuild assembles the chain around token. Caller holds mu, except during construction.
func (p *Pipeline) rebuild(token *oauth2.Token) {
	rt := p.interceptor(p.base)
	if token != nil {
		rt = signer(token)(rt)
	}
	for i := len(p.extra) - 1; i >= 0; i-- {
		rt = p.extra[i](rt)
	}
	if p.limiter != nil {
		rt = limit(p.limiter)(rt)
	}
	if p.logger != nil {
		rt = logging(p.logger)(rt)
	}

	p.current.Store(&chain{rt: rt, token: token})
}

// interceptor reports 401 responses to signed requests, passing the rejected bearer. Anonymous requests that carry
// their own bearer are not reported.
func (p *Pipeline) interceptor(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil || resp.StatusCode != http.StatusUnauthorized || isAnonymous(req.Context()) {
			return resp, err
		}

		bearer, ok := bearerOf(req)
		if !ok {
			return resp, nil
		}
		if fn := p.handler.Load(); fn != nil && *fn != nil {
			(*fn)(bearer)
		}
		return resp, nil
	})
}

// signer attaches token with [oauth2.Transport] unless the request is anonymous.
func signer(token *oauth2.Token) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		signed := &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: next}
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if isAnonymous(req.Context()) {
				return next.RoundTrip(req)
			}
			return signed.RoundTrip(req)
		})
	}
}

func limit(l *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := l.Wait(req.Context()); err != nil {
				if req.Body != nil {
					req.Body.Close()
				}
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}

func logging(logger *log.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start).Round(time.Millisecond)

			if err != nil {
				logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "elapsed", elapsed, "error", err)
				return resp, err
			}

			logger.Debug("request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", elapsed)
			return resp, nil
		})
	}
}

func bearerOf(req *http.Request) (string, bool) {
	h := req.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}
