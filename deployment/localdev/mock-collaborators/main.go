package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type clusterAssignment struct {
	IDs             []string `json:"ids"`
	Tags            []string `json:"tags"`
	ImportanceScore float64  `json:"importance_score"`
	CustomerImpact  int      `json:"customer_impact"`
}

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var fallbackClusters = map[string]clusterAssignment{
	"0": {IDs: []string{"1", "4"}, Tags: []string{"export", "reporting"}},
	"1": {IDs: []string{"2"}, Tags: []string{"sso", "security"}},
	"2": {IDs: []string{"3", "5"}, Tags: []string{"performance"}},
}

var (
	customers  = []string{"Loom", "Ramp", "Brex", "Vanta", "Notion", "Linear", "OpenAI"}
	importance = []string{"Low", "Medium", "High"}
	types      = []string{"Sales", "Customer", "Research"}
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	clustersPath := flag.String("clusters", "", "tagged clusters JSON served from /clusters")
	flag.Parse()

	logger := log.New(log.Writer(), "collaborators-mock ", log.LstdFlags|log.Lmicroseconds)

	clusters := fallbackClusters
	if *clustersPath != "" {
		data, err := os.ReadFile(*clustersPath)
		if err != nil {
			logger.Fatalf("read clusters: %v", err)
		}
		if err := json.Unmarshal(data, &clusters); err != nil {
			logger.Fatalf("decode clusters: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/clusters", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{"tagged_clusters": clusters})
	})

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		query := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				query = m.Content
			}
		}
		args, _ := json.Marshal(extract(query))
		writeJSON(w, map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []any{map[string]any{
						"id":   "call_mock",
						"type": "function",
						"function": map[string]any{
							"name":      "filter_data",
							"arguments": string(args),
						},
					}},
				},
			}},
		})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// extract is a keyword matcher standing in for the language model.
func extract(query string) map[string]any {
	lower := strings.ToLower(query)
	out := map[string]any{}
	if strings.Contains(lower, "clear") || strings.Contains(lower, "reset") {
		out["clear"] = true
		return out
	}
	add := func(field string, roster []string) {
		var hits []string
		for _, v := range roster {
			if strings.Contains(lower, strings.ToLower(v)) {
				hits = append(hits, v)
			}
		}
		if len(hits) > 0 {
			out[field] = hits
		}
	}
	add("customer", customers)
	add("importance", importance)
	add("type", types)
	return out
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
