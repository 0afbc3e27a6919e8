package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/grpcservice"
)

// serveHTTPGateway runs an HTTP/1.1 server on ln serving the grpc-gateway mux.
func serveHTTPGateway(ln net.Listener, mux *gwruntime.ServeMux) error {
	srv := &http.Server{Handler: mux}
	return srv.Serve(ln)
}

var jsonpb gwruntime.Marshaler = &gwruntime.JSONPb{}

// newGatewayMux exposes the History RPCs as JSON over HTTP:
//
//	GET    /v1/size
//	GET    /v1/items/{index}
//	POST   /v1/items             {"text": "..."}
//	DELETE /v1/items             (empty the history)
//	DELETE /v1/ids/{id}
//	PUT    /v1/ids/{id}          {"text": "..."} (edit in place)
//	POST   /v1/ids/{id}/select
//	GET    /v1/search?q=...
//	PUT    /v1/tracking          {"enabled": true}
//	GET    /v1/histories
//	PUT    /v1/histories/current {"name": "..."}
//	DELETE /v1/histories/{name}
//	GET    /v1/status
func newGatewayMux(svc *grpcservice.Service) *gwruntime.ServeMux {
	mux := gwruntime.NewServeMux()

	handle := func(method, pattern string, call func(ctx context.Context, r *http.Request, p map[string]string) (any, error)) {
		err := mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			resp, err := call(incoming(r), r, p)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})
		if err != nil {
			panic(err)
		}
	}

	handle("GET", "/v1/size", func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
		return svc.Size(ctx, &api.SizeRequest{})
	})
	handle("GET", "/v1/items/{index}", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
		i, err := strconv.Atoi(p["index"])
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "bad index %q", p["index"])
		}
		return svc.Get(ctx, &api.GetRequest{Index: i})
	})
	handle("POST", "/v1/items", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
		var req api.AddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
		}
		return svc.Add(ctx, &req)
	})
	handle("DELETE", "/v1/items", func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
		return svc.Empty(ctx, &api.EmptyRequest{})
	})
	handle("DELETE", "/v1/ids/{id}", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
		return svc.Delete(ctx, &api.DeleteRequest{ID: p["id"]})
	})
	handle("PUT", "/v1/ids/{id}", func(ctx context.Context, r *http.Request, p map[string]string) (any, error) {
		var req api.ReplaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
		}
		req.ID = p["id"]
		return svc.Replace(ctx, &req)
	})
	handle("POST", "/v1/ids/{id}/select", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
		return svc.Select(ctx, &api.SelectRequest{ID: p["id"]})
	})
	handle("GET", "/v1/search", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
		return svc.Search(ctx, &api.SearchRequest{Query: r.URL.Query().Get("q")})
	})
	handle("PUT", "/v1/tracking", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
		var req api.TrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
		}
		return svc.Track(ctx, &req)
	})
	handle("GET", "/v1/histories", func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
		return svc.Histories(ctx, &api.HistoriesRequest{})
	})
	handle("PUT", "/v1/histories/current", func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
		var req api.SwitchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
		}
		return svc.Switch(ctx, &req)
	})
	handle("DELETE", "/v1/histories/{name}", func(ctx context.Context, _ *http.Request, p map[string]string) (any, error) {
		return svc.DeleteHistory(ctx, &api.DeleteHistoryRequest{Name: p["name"]})
	})
	handle("GET", "/v1/status", func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
		return svc.Status(ctx, &api.StatusRequest{})
	})

	return mux
}

// incoming carries the HTTP auth and source headers into gRPC metadata so
// the service applies the same checks as for RPC callers.
func incoming(r *http.Request) context.Context {
	md := metadata.MD{}
	if v := r.Header.Get("Authorization"); v != "" {
		md.Set("authorization", v)
	}
	if v := r.Header.Get(grpcservice.SourceHeader); v != "" {
		md.Set(grpcservice.SourceHeader, v)
	}
	return metadata.NewIncomingContext(r.Context(), md)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := jsonpb.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", jsonpb.ContentType(v))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeJSON(w, gwruntime.HTTPStatusFromCode(st.Code()), map[string]string{
		"code":    st.Code().String(),
		"message": st.Message(),
	})
}
