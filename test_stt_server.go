package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Fake speech-to-text endpoint for local development. Point the stt config
// section at http://localhost:9000/transcribe and every clip comes back as
// a canned trigger phrase.

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	clipID := r.FormValue("clip_id")
	requestID := r.FormValue("request_id")
	language := r.FormValue("language")
	model := r.FormValue("model")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	file.Close()

	log.Printf("transcription request: clip_id=%s request_id=%s language=%s model=%s file=%s size=%d",
		clipID, requestID, language, model, header.Filename, header.Size)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := transcriptionResponse{
		Text:     "hey bot say something about my teammate",
		Language: "en",
		Duration: 1.5,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("transcription response sent: %q", response.Text)
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":9000"
	log.Printf("Test STT server starting on %s", port)
	log.Printf("Endpoint: http://localhost%s/transcribe", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
