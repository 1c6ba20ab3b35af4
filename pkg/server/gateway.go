package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	v1 "github.com/pojntfx/atorrent/pkg/api/http/v1"
	"github.com/pojntfx/atorrent/pkg/backend"
	"github.com/pojntfx/atorrent/pkg/bencode"
	"github.com/pojntfx/atorrent/pkg/metainfo"
	"github.com/pojntfx/atorrent/pkg/orchestrator"
	"github.com/pojntfx/atorrent/pkg/resolver"
	"github.com/pojntfx/go-auth-utils/pkg/authn"
	"github.com/pojntfx/go-auth-utils/pkg/authn/basic"
	"github.com/pojntfx/go-auth-utils/pkg/authn/oidc"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyIdentifier = errors.New("could not work with an empty magnet link or torrent URL")
)

const (
	DefaultResolveTimeout       = time.Second * 30
	DefaultRegistrationAttempts = 10
	DefaultRegistrationInterval = time.Millisecond * 500
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Gateway serves metadata resolution and acquisition over HTTP. Each request
// runs as one independent workflow bound to the request context; nothing is
// shared between concurrent requests except the stateless backend client.
type Gateway struct {
	laddr        string
	storage      string
	apiUsername  string
	apiPassword  string
	oidcIssuer   string
	oidcClientID string
	debug        bool

	backendURL      string
	backendUsername string
	backendPassword string

	resolveTimeout       time.Duration
	registrationAttempts int
	registrationInterval time.Duration

	onAcquisition func(result v1.AcquisitionResult)

	resolver     *resolver.Resolver
	orchestrator *orchestrator.Orchestrator
	srv          *http.Server

	errs chan error

	ctx context.Context
}

func NewGateway(
	laddr string,
	storage string,
	apiUsername string,
	apiPassword string,
	oidcIssuer string,
	oidcClientID string,
	debug bool,

	backendURL string,
	backendUsername string,
	backendPassword string,

	resolveTimeout time.Duration,
	registrationAttempts int,
	registrationInterval time.Duration,

	onAcquisition func(result v1.AcquisitionResult),

	ctx context.Context,
) *Gateway {
	return &Gateway{
		laddr:        laddr,
		storage:      storage,
		apiUsername:  apiUsername,
		apiPassword:  apiPassword,
		oidcIssuer:   oidcIssuer,
		oidcClientID: oidcClientID,
		debug:        debug,

		backendURL:      backendURL,
		backendUsername: backendUsername,
		backendPassword: backendPassword,

		resolveTimeout:       resolveTimeout,
		registrationAttempts: registrationAttempts,
		registrationInterval: registrationInterval,

		onAcquisition: onAcquisition,

		errs: make(chan error),

		ctx: ctx,
	}
}

func (g *Gateway) Open() error {
	log.Trace().Msg("Opening gateway")

	g.resolver = resolver.NewResolver(g.storage, g.resolveTimeout, g.debug, g.ctx)
	if err := g.resolver.Open(); err != nil {
		return err
	}

	g.orchestrator = orchestrator.NewOrchestrator(
		backend.NewClient(g.backendURL, g.backendUsername, g.backendPassword, g.resolveTimeout),
		g.registrationAttempts,
		g.registrationInterval,
	)

	var auth authn.Authn
	if strings.TrimSpace(g.oidcIssuer) == "" && strings.TrimSpace(g.oidcClientID) == "" {
		auth = basic.NewAuthn(g.apiUsername, g.apiPassword)
	} else {
		auth = oidc.NewAuthn(g.oidcIssuer, g.oidcClientID)
	}

	if err := auth.Open(g.ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			if e, ok := err.(error); ok {
				log.Debug().
					Err(e).
					Msg("Closed connection for client")
			} else {
				log.Debug().Msg("Closed connection for client")
			}
		}()

		u, p, ok := r.BasicAuth()
		if err := auth.Validate(u, p); !ok || err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="atorrent"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			panic(fmt.Errorf("%v", http.StatusUnauthorized))
		}

		identifier := r.URL.Query().Get("magnet")
		if identifier == "" {
			identifier = r.URL.Query().Get("url")
		}
		if identifier == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)

			panic(ErrEmptyIdentifier)
		}

		log.Debug().
			Str("identifier", identifier).
			Msg("Getting info")

		record, err := g.resolver.ResolveIdentifier(r.Context(), identifier)
		if err != nil {
			w.WriteHeader(resolutionStatus(err))

			panic(err)
		}

		enc := json.NewEncoder(w)
		if err := enc.Encode(record); err != nil {
			panic(err)
		}
	})

	mux.HandleFunc("/add", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			if e, ok := err.(error); ok {
				log.Debug().
					Err(e).
					Msg("Closed connection for client")
			} else {
				log.Debug().Msg("Closed connection for client")
			}
		}()

		u, p, ok := r.BasicAuth()
		if err := auth.Validate(u, p); !ok || err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="atorrent"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			panic(fmt.Errorf("%v", http.StatusUnauthorized))
		}

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)

			panic(fmt.Errorf("%v", http.StatusMethodNotAllowed))
		}

		req := v1.AcquisitionRequest{}
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)

			panic(err)
		}
		if strings.TrimSpace(req.Identifier) == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)

			panic(ErrEmptyIdentifier)
		}

		log.Debug().
			Str("identifier", req.Identifier).
			Msg("Acquiring torrent")

		record, err := g.resolver.ResolveIdentifier(r.Context(), req.Identifier)
		if err != nil {
			w.WriteHeader(resolutionStatus(err))

			panic(err)
		}

		result := g.orchestrator.Acquire(r.Context(), req, record)

		res := v1.AcquisitionResult{
			Hash: result.Hash,
		}
		if result.Err != nil {
			res.Stage = string(result.Stage)
			res.Error = result.Err.Error()

			w.WriteHeader(acquisitionStatus(result.Err))
		}

		if g.onAcquisition != nil {
			g.onAcquisition(res)
		}

		enc := json.NewEncoder(w)
		if err := enc.Encode(res); err != nil {
			panic(err)
		}
	})

	g.srv = &http.Server{Addr: g.laddr}
	g.srv.Handler = mux

	log.Debug().
		Str("address", g.laddr).
		Msg("Listening")

	go func() {
		if err := g.srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				close(g.errs)

				return
			}

			g.errs <- err

			return
		}
	}()

	return nil
}

// resolutionStatus maps resolution errors onto HTTP statuses: unusable
// caller-supplied identifiers and malformed documents are unprocessable,
// unreachable torrent URLs are a bad gateway.
func resolutionStatus(err error) int {
	switch {
	case errors.Is(err, resolver.ErrInvalidMagnet),
		errors.Is(err, resolver.ErrUnsupportedHashLength),
		errors.Is(err, bencode.ErrMalformedEncoding),
		errors.Is(err, metainfo.ErrMissingInfoDictionary),
		errors.Is(err, metainfo.ErrMissingFileInformation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, resolver.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// acquisitionStatus maps workflow failures onto HTTP statuses: a selection
// the caller got wrong is unprocessable, everything the backend rejected is a
// bad gateway.
func acquisitionStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrAllFilesSkipped),
		errors.Is(err, orchestrator.ErrUnknownFileList):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (g *Gateway) Close() error {
	log.Trace().Msg("Closing gateway")

	if err := g.srv.Shutdown(g.ctx); err != nil {
		if err != context.Canceled {
			return err
		}
	}

	return g.resolver.Close()
}

func (g *Gateway) Wait() error {
	for err := range g.errs {
		if err != nil {
			return err
		}
	}

	return nil
}
