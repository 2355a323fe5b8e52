package skriba

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/intervju/skriba/internal/app/skriba/api"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/keeprange"
	"github.com/intervju/skriba/internal/pkg/status"
	"go.mongodb.org/mongo-driver/bson"
)

type editableHandler struct {
	data *ServiceData
}

func (h editableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	segments, err := h.data.Segments.List(id)
	if err != nil {
		writeError(w, err)
		return
	}
	words, err := h.data.Words.List(id)
	if err != nil {
		writeError(w, err)
		return
	}
	res := api.EditableTranscript{Segments: make([]api.Segment, 0, len(segments)),
		Words: make([]api.Word, 0, len(words))}
	for i := range segments {
		res.Segments = append(res.Segments, api.SegmentFromRecord(&segments[i]))
	}
	for i := range words {
		res.Words = append(res.Words, api.WordFromRecord(&words[i]))
	}
	writeJSON(w, res)
}

type wordsHandler struct {
	data *ServiceData
}

func (h wordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req api.WordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}
	if len(req.WordIDs) == 0 {
		writeError(w, errc.Validation("no words provided"))
		return
	}
	if req.Included == nil {
		writeError(w, errc.Validation("no included value"))
		return
	}
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.data.Words.SetIncluded(id, req.WordIDs, *req.Included)
	if err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Updated %d words of job %s", updated, id)
	writeJSON(w, api.WordsResult{Updated: updated})
}

type wordsResetHandler struct {
	data *ServiceData
}

func (h wordsResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.data.Words.ResetIncluded(id); err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Reset word selection of job %s", id)
	w.WriteHeader(http.StatusNoContent)
}

type editedAudioHandler struct {
	data *ServiceData
}

func (h editedAudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.data.Jobs.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if status.From(job.Status) != status.Completed {
		writeError(w, errc.Precondition("job '%s' is %s, not completed", id, job.Status))
		return
	}
	segments, err := h.data.Segments.List(id)
	if err != nil {
		writeError(w, err)
		return
	}
	words, err := h.data.Words.List(id)
	if err != nil {
		writeError(w, err)
		return
	}
	ranges, err := keeprange.Compute(segments, words)
	if err != nil {
		writeError(w, err)
		return
	}

	ext := filepath.Ext(job.FileID)
	out, err := os.CreateTemp("", "skriba-out-*"+ext)
	if err != nil {
		writeError(w, err)
		return
	}
	out.Close()
	defer os.Remove(out.Name())

	src := h.data.FileResolver.Resolve(job.FileID)
	if err := h.data.Editor.Materialize(r.Context(), src, ranges, out.Name()); err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Serving edited audio for job %s, %d ranges", id, len(ranges))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+id+"_edited"+ext+"\"")
	http.ServeFile(w, r, out.Name())
}

type speakerHandler struct {
	data *ServiceData
}

func (h speakerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req api.SpeakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, errc.Validation("both from and to are required"))
		return
	}
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	segments, err := h.data.Segments.List(id)
	if err != nil {
		writeError(w, err)
		return
	}
	changed := 0
	for i := range segments {
		if segments[i].Speaker != req.From {
			continue
		}
		err = h.data.Segments.Update(id, segments[i].ID, bson.M{"speaker": req.To})
		if err != nil {
			writeError(w, err)
			return
		}
		changed++
	}
	cmdapp.Log.Infof("Renamed speaker '%s' to '%s' in %d segments of job %s",
		req.From, req.To, changed, id)
	writeJSON(w, api.SpeakerResult{ChangedSegments: changed})
}

type segmentPatchHandler struct {
	data *ServiceData
}

func (h segmentPatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	segmentID := vars["segmentID"]
	var req api.SegmentPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}
	fields := bson.M{}
	if req.Text != nil {
		fields["text"] = *req.Text
	}
	if req.RedactedText != nil {
		fields["redactedText"] = *req.RedactedText
	}
	if req.Speaker != nil {
		fields["speaker"] = *req.Speaker
	}
	if len(fields) == 0 {
		writeError(w, errc.Validation("nothing to update"))
		return
	}
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.data.Segments.Update(id, segmentID, fields); err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Updated segment %s of job %s", segmentID, id)
	w.WriteHeader(http.StatusNoContent)
}
