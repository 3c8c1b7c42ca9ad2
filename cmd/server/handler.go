package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ethstorage/domain-resolution/pkg/resolution"
)

// domainResolver is the slice of the resolution facade the gateway serves.
type domainResolver interface {
	Owner(ctx context.Context, domain string) (string, error)
	Resolver(ctx context.Context, domain string) (string, error)
	AllRecords(ctx context.Context, domain string) (map[string]string, error)
	Record(ctx context.Context, domain string, key string) (string, error)
}

type PageCacheKey struct {
	Path string
}

type PageCacheEntry struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

type domainResponse struct {
	Domain   string            `json:"domain"`
	Owner    string            `json:"owner"`
	Resolver string            `json:"resolver"`
	Records  map[string]string `json:"records"`
}

type recordResponse struct {
	Domain string `json:"domain"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusForError maps resolution error kinds onto HTTP statuses. Unknown
// errors are reported as internal.
func statusForError(err error) int {
	switch {
	case resolution.IsKind(err, resolution.UnregisteredDomain),
		resolution.IsKind(err, resolution.RecordNotFound),
		resolution.IsKind(err, resolution.UnspecifiedResolver):
		return http.StatusNotFound
	case resolution.IsKind(err, resolution.UnsupportedDomain),
		resolution.IsKind(err, resolution.UnsupportedMethod),
		resolution.IsKind(err, resolution.UnsupportedService):
		return http.StatusBadRequest
	case resolution.IsKind(err, resolution.ServiceProviderError),
		resolution.IsKind(err, resolution.IncorrectBlockchainProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	code := "INTERNAL_ERROR"
	var rerr *resolution.ResolutionError
	if errors.As(err, &rerr) {
		code = string(rerr.Kind)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	bs, err := json.Marshal(body)
	if err != nil {
		log.Errorf("Cannot marshal response: %v\n", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if config.CORS != "" {
		w.Header().Set("Access-Control-Allow-Origin", config.CORS)
	}
	w.WriteHeader(status)
	if _, err := w.Write(bs); err != nil {
		log.Errorf("Cannot write response: %v\n", err)
	}
}

// handle serves GET /domains/{domain} and GET /domains/{domain}/records/{key}.
// Successful responses are cached by path in the LRU page cache.
func handle(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if pageCache != nil {
		if entry, ok := pageCache.Get(PageCacheKey{Path: req.URL.Path}); ok {
			log.Debug("page cache hit: ", req.URL.Path)
			w.Header().Set("Content-Type", entry.ContentType)
			if config.CORS != "" {
				w.Header().Set("Access-Control-Allow-Origin", config.CORS)
			}
			w.WriteHeader(entry.StatusCode)
			w.Write(entry.Body)
			return
		}
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(req.URL.Path, "/domains/"), "/"), "/")
	ctx := req.Context()
	var body interface{}
	switch {
	case len(parts) == 1 && parts[0] != "":
		domain := parts[0]
		owner, err := resolver.Owner(ctx, domain)
		if err != nil {
			writeError(w, err)
			return
		}
		resolverAddr, err := resolver.Resolver(ctx, domain)
		if err != nil && !resolution.IsKind(err, resolution.UnspecifiedResolver) {
			writeError(w, err)
			return
		}
		records := map[string]string{}
		if err == nil {
			records, err = resolver.AllRecords(ctx, domain)
			if err != nil {
				writeError(w, err)
				return
			}
		}
		body = domainResponse{Domain: domain, Owner: owner, Resolver: resolverAddr, Records: records}
	case len(parts) == 3 && parts[1] == "records" && parts[2] != "":
		domain, key := parts[0], parts[2]
		value, err := resolver.Record(ctx, domain, key)
		if err != nil {
			writeError(w, err)
			return
		}
		body = recordResponse{Domain: domain, Key: key, Value: value}
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "unknown path"})
		return
	}

	bs, err := json.Marshal(body)
	if err != nil {
		log.Errorf("Cannot marshal response: %v\n", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if pageCache != nil {
		pageCache.Add(PageCacheKey{Path: req.URL.Path},
			PageCacheEntry{StatusCode: http.StatusOK, Body: bs, ContentType: "application/json"})
	}
	w.Header().Set("Content-Type", "application/json")
	if config.CORS != "" {
		w.Header().Set("Access-Control-Allow-Origin", config.CORS)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(bs); err != nil {
		log.Errorf("Cannot write response: %v\n", err)
	}
	if writeAPI != nil {
		stats(len(bs), req.RemoteAddr, req.URL.Path, req.Host)
	}
}

func stats(returnSize int, hostPort, path, host string) {
	point := influxdb2.NewPointWithMeasurement("resolution_stats").
		AddTag("path", path).
		AddField("size", returnSize).
		SetTime(time.Now())
	er := writeAPI.WritePoint(context.Background(), point)
	if er != nil {
		log.Errorln("db err", er)
	}
	ip, _, er := net.SplitHostPort(hostPort)
	if er != nil {
		ip = "unknown"
	}
	point = influxdb2.NewPointWithMeasurement("resolution_stats_url").
		AddTag("url", host).
		AddField("ip", ip).
		SetTime(time.Now())
	er = writeAPI.WritePoint(context.Background(), point)
	if er != nil {
		log.Errorln("db err", er)
	}
}
