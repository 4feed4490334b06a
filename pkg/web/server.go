// Package web is the HTTP front end for share links: preview pages,
// streaming proxy downloads, bundle manifests, icon previews, and the
// multipart upload API.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/purpleshop/filebridge/pkg/archive"
	"github.com/purpleshop/filebridge/pkg/link"
	"github.com/purpleshop/filebridge/pkg/logger"
	"github.com/purpleshop/filebridge/pkg/metrics"
	"github.com/purpleshop/filebridge/pkg/platform"
	"github.com/purpleshop/filebridge/pkg/resolve"
	"github.com/purpleshop/filebridge/pkg/storage"
)

// maxIconArchiveBytes caps how much of an archive the icon endpoint pulls.
const maxIconArchiveBytes = 64 << 20

var unsafeNameChars = regexp.MustCompile(`[^0-9a-zA-Z_.\-]+`)

type Server struct {
	resolver *resolve.Resolver
	uploader *storage.Uploader
	origin   *Origin

	httpClient     *http.Client
	maxUploadBytes int64
}

func NewServer(resolver *resolve.Resolver, uploader *storage.Uploader, origin *Origin, maxUploadBytes int64) *Server {
	return &Server{
		resolver:       resolver,
		uploader:       uploader,
		origin:         origin,
		httpClient:     &http.Client{Timeout: 5 * time.Minute},
		maxUploadBytes: maxUploadBytes,
	}
}

// SetHTTPClient replaces the client used for CDN proxy fetches (tests).
func (s *Server) SetHTTPClient(c *http.Client) { s.httpClient = c }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(s.observeOrigin)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/f/{guild}/{channel}/{message}/{attachment}", s.handlePreview)
	r.Get("/f/{guild}/{channel}/{message}/{attachment}/download", s.handleDownload)
	r.Get("/fb/{guild}/{channel}/{message}", s.handleBundlePreview)
	r.Get("/fb/{guild}/{channel}/{message}/download", s.handleBundleManifest)
	r.Get("/icon/{guild}/{channel}/{message}/{attachment}", s.handleIcon)
	r.Post("/api/upload", s.handleUpload)

	return r
}

// observeOrigin keeps the link origin in sync with how clients reach us.
func (s *Server) observeOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.origin.Observe(r.Host)
		next.ServeHTTP(w, r)
	})
}

func pathIdentifier(r *http.Request) (link.Identifier, error) {
	return link.DecodeSegments(
		chi.URLParam(r, "guild"),
		chi.URLParam(r, "channel"),
		chi.URLParam(r, "message"),
		chi.URLParam(r, "attachment"),
	)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		s.notFound(w)
		return
	}

	att, err := s.resolver.One(r.Context(), id.ChannelID, id.MessageID, id.AttachmentID)
	if err != nil {
		s.resolveError(w, err)
		return
	}

	base := s.origin.BaseURL()
	data := previewData{
		Title:        att.Name,
		Files:        []previewFile{{Name: att.Name, SizeLabel: sizeLabel(att.Size)}},
		DownloadHref: base + link.Encode(id) + "/download",
	}
	if archive.IsArchiveName(att.Name) {
		data.IconHref = base + "/icon/" + trimLinkPrefix(link.Encode(id))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPreview(w, data); err != nil {
		logger.ErrorCF("web", "Rendering preview failed", map[string]any{"error": err.Error()})
	}
}

func (s *Server) handleBundlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		s.notFound(w)
		return
	}

	atts, err := s.resolver.All(r.Context(), id.ChannelID, id.MessageID)
	if err != nil {
		s.resolveError(w, err)
		return
	}

	base := s.origin.BaseURL()
	data := previewData{
		Title:        fmt.Sprintf("%d files", len(atts)),
		DownloadHref: base + link.Encode(id) + "/download",
	}
	for _, att := range atts {
		data.Files = append(data.Files, previewFile{Name: att.Name, SizeLabel: sizeLabel(att.Size)})
		if data.IconHref == "" && archive.IsArchiveName(att.Name) {
			single := link.Identifier{GuildID: id.GuildID, ChannelID: id.ChannelID, MessageID: id.MessageID, AttachmentID: att.ID}
			data.IconHref = base + "/icon/" + trimLinkPrefix(link.Encode(single))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPreview(w, data); err != nil {
		logger.ErrorCF("web", "Rendering bundle preview failed", map[string]any{"error": err.Error()})
	}
}

// handleDownload proxies the stored bytes straight through without
// buffering. The upstream request carries the caller's context, so a
// closed client connection stops the upstream transfer too.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		s.notFound(w)
		return
	}

	att, err := s.resolver.One(r.Context(), id.ChannelID, id.MessageID, id.AttachmentID)
	if err != nil {
		s.resolveError(w, err)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, att.URL, nil)
	if err != nil {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
	if att.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Usually the client going away mid-transfer.
		logger.DebugCF("web", "Download stream interrupted", map[string]any{"error": err.Error()})
	}
}

// manifest is the bundle download response: per-file links, retrieval left
// to the caller.
type manifest struct {
	Files []manifestFile `json:"files"`
}

type manifestFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleBundleManifest(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "not-found")
		return
	}

	atts, err := s.resolver.All(r.Context(), id.ChannelID, id.MessageID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			s.jsonError(w, http.StatusNotFound, "not-found")
		} else {
			s.jsonError(w, http.StatusBadGateway, "upstream-unavailable")
		}
		return
	}

	base := s.origin.BaseURL()
	m := manifest{Files: []manifestFile{}}
	for _, att := range atts {
		single := link.Identifier{GuildID: id.GuildID, ChannelID: id.ChannelID, MessageID: id.MessageID, AttachmentID: att.ID}
		m.Files = append(m.Files, manifestFile{
			Name: att.Name,
			URL:  base + link.Encode(single) + "/download",
		})
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}

	att, err := s.resolver.One(r.Context(), id.ChannelID, id.MessageID, id.AttachmentID)
	if err != nil {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, att.URL, nil)
	if err != nil {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconArchiveBytes))
	if err != nil {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}

	icon, ok := archive.ExtractIcon(data)
	if !ok {
		http.Error(w, "not-found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(icon)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.jsonError(w, http.StatusRequestEntityTooLarge, "too-large")
			return
		}
		s.jsonError(w, http.StatusBadRequest, "no-file")
		return
	}
	defer file.Close()

	name := r.FormValue("fileName")
	if name == "" {
		name = header.Filename
	}
	name = SanitizeFilename(name)

	data, err := io.ReadAll(file)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.jsonError(w, http.StatusRequestEntityTooLarge, "too-large")
			return
		}
		s.jsonError(w, http.StatusBadRequest, "no-file")
		return
	}

	receipt, err := s.uploader.Upload(r.Context(), storage.FromBytes(name, data))
	if err != nil {
		logger.ErrorCF("web", "Upload failed", map[string]any{"file": name, "error": err.Error()})
		s.jsonError(w, http.StatusInternalServerError, "upload-failed")
		return
	}

	path := link.Encode(link.Identifier{
		GuildID:      receipt.GuildID,
		ChannelID:    receipt.ChannelID,
		MessageID:    receipt.MessageID,
		AttachmentID: receipt.AttachmentID,
	})
	base := s.origin.BaseURL()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"link": base + path,
		"url":  base + path + "/download",
	})
}

// SanitizeFilename reduces a client-supplied filename to a safe charset.
func SanitizeFilename(name string) string {
	clean := unsafeNameChars.ReplaceAllString(name, "_")
	if clean == "" || clean == "_" {
		clean = "upload.bin"
	}
	return clean
}

func (s *Server) notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	renderNotFound(w)
}

// resolveError maps resolution failures onto page responses: stale or
// malformed links degrade to a clean not-found page, upstream trouble to a
// plain 502.
func (s *Server) resolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, platform.ErrNotFound) || errors.Is(err, link.ErrMalformedLink) {
		s.notFound(w)
		return
	}
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorCF("web", "Encoding response failed", map[string]any{"error": err.Error()})
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, code string) {
	s.writeJSON(w, status, map[string]string{"error": code})
}

func trimLinkPrefix(path string) string {
	// "/f/a/b/c/d" -> "a/b/c/d" for reuse under another route prefix.
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
