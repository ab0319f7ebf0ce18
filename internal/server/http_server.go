package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/oggyb/ravematch/internal/auth"
	"github.com/oggyb/ravematch/internal/config"
	svcErr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/service/swipe"
)

const readHeaderTimeout = 10 * time.Second

// Gateway exposes the swipe service as JSON over HTTP.
type Gateway struct {
	svc swipe.SwipeServer
	log *slog.Logger
}

// NewHTTPHandler returns the gateway router wrapped in auth and CORS.
func NewHTTPHandler(cfg *config.Config, svc swipe.SwipeServer, verifier *auth.Verifier, log *slog.Logger) http.Handler {
	g := &Gateway{svc: svc, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/v1/users/{uid}").Subrouter()
	api.HandleFunc("/profile", g.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", g.updateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/premium", g.setPremium).Methods(http.MethodPut)
	api.HandleFunc("/verification", g.requestVerification).Methods(http.MethodPost)
	api.HandleFunc("/boost", g.boost).Methods(http.MethodPost)
	api.HandleFunc("/candidates", g.fetchCandidates).Methods(http.MethodGet)
	api.HandleFunc("/likes", g.sendLike).Methods(http.MethodPost)
	api.HandleFunc("/likes", g.listMyLikes).Methods(http.MethodGet)
	api.HandleFunc("/liked-you", g.listLikedYou).Methods(http.MethodGet)
	api.HandleFunc("/liked-you/count", g.countLikedYou).Methods(http.MethodGet)
	api.HandleFunc("/matches", g.listMatches).Methods(http.MethodGet)
	api.HandleFunc("/matches/{otherId}/messages", g.sendFirstMessage).Methods(http.MethodPost)

	handler := auth.Middleware(verifier, "/health")(r)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(handler)
}

// NewHTTPServer builds the gateway server on the configured address.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func (g *Gateway) getProfile(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		return g.svc.GetProfile(ctx, &swipe.UserRequest{UID: mux.Vars(r)["uid"]})
	})
}

func (g *Gateway) updateProfile(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		fields := map[string]any{}
		if err := decodeBody(r, &fields); err != nil {
			return nil, err
		}
		return g.svc.UpdateProfile(ctx, &swipe.UpdateProfileRequest{UID: mux.Vars(r)["uid"], Fields: fields})
	})
}

func (g *Gateway) setPremium(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		var req swipe.SetPremiumRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		req.UID = mux.Vars(r)["uid"]
		return g.svc.SetPremium(ctx, &req)
	})
}

func (g *Gateway) requestVerification(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		return g.svc.RequestVerification(ctx, &swipe.UserRequest{UID: mux.Vars(r)["uid"]})
	})
}

func (g *Gateway) boost(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		return g.svc.Boost(ctx, &swipe.UserRequest{UID: mux.Vars(r)["uid"]})
	})
}

func (g *Gateway) fetchCandidates(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		return g.svc.FetchCandidates(ctx, &swipe.UserRequest{UID: mux.Vars(r)["uid"]})
	})
}

func (g *Gateway) sendLike(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		var req swipe.SendLikeRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		req.ActorID = mux.Vars(r)["uid"]
		return g.svc.SendLike(ctx, &req)
	})
}

func (g *Gateway) listLikedYou(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		req, err := listLikesRequest(r)
		if err != nil {
			return nil, err
		}
		return g.svc.ListLikedYou(ctx, req)
	})
}

func (g *Gateway) listMyLikes(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		req, err := listLikesRequest(r)
		if err != nil {
			return nil, err
		}
		return g.svc.ListMyLikes(ctx, req)
	})
}

func (g *Gateway) countLikedYou(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		return g.svc.CountLikedYou(ctx, &swipe.UserRequest{UID: mux.Vars(r)["uid"]})
	})
}

func (g *Gateway) listMatches(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		limit, err := queryInt(r, "limit")
		if err != nil {
			return nil, err
		}
		return g.svc.ListMatches(ctx, &swipe.ListMatchesRequest{UID: mux.Vars(r)["uid"], Limit: limit})
	})
}

func (g *Gateway) sendFirstMessage(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, func(ctx context.Context) (any, error) {
		var req swipe.FirstMessageRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		vars := mux.Vars(r)
		req.ActorID = vars["uid"]
		req.OtherID = vars["otherId"]
		return g.svc.SendFirstMessage(ctx, &req)
	})
}

// serve runs call and writes its result or its error as JSON.
func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, call func(ctx context.Context) (any, error)) {
	resp, err := call(r.Context())
	if err != nil {
		code := svcErr.GetCode(err)
		st := svcErr.HTTPStatus(err)
		if st >= http.StatusInternalServerError {
			g.log.Error("http request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		} else {
			g.log.Debug("http request rejected", "method", r.Method, "path", r.URL.Path, "code", code)
		}
		writeJSON(w, st, map[string]string{"code": string(code), "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func listLikesRequest(r *http.Request) (*swipe.ListLikesRequest, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return nil, err
	}
	req := &swipe.ListLikesRequest{UID: mux.Vars(r)["uid"], Limit: limit}
	if tok := r.URL.Query().Get("paginationToken"); tok != "" {
		req.PaginationToken = &tok
	}
	return req, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, svcErr.InvalidArgument(name + " must be an integer")
	}
	return n, nil
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return svcErr.InvalidArgument("invalid JSON body: " + err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
