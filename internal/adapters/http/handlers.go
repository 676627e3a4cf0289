package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/domain"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var params domain.LifeParameters
	if !decode(w, r, &params, false) {
		return
	}
	snap, err := h.services.Profile.Login(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Profile.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	snap, err := h.services.Profile.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleMembership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Member bool `json:"member"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.services.Profile.SetMembership(r.Context(), req.Member); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": req.Member})
}

func (h *Handler) handleMerit(w http.ResponseWriter, r *http.Request) {
	balance, history := h.services.Profile.Merit()
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance, "history": history})
}

func (h *Handler) handleAddMerit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int              `json:"amount"`
		Type   domain.MeritType `json:"type"`
		Desc   string           `json:"desc"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	record, err := h.services.Profile.AddMerit(r.Context(), req.Amount, req.Type, req.Desc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleConsumeMerit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int    `json:"amount"`
		Desc   string `json:"desc"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	consumed, err := h.services.Profile.ConsumeMerit(r.Context(), req.Amount, req.Desc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !consumed {
		h.writeError(w, r, domain.ErrInsufficientMerit)
		return
	}
	balance, _ := h.services.Profile.Merit()
	writeJSON(w, http.StatusOK, map[string]any{"consumed": true, "balance": balance})
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	record, found, err := h.services.Profile.DailyRecord(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true, "record": record})
}

func (h *Handler) handleSubmitDaily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State  domain.DailyState   `json:"state"`
		Energy domain.EnergyLevel  `json:"energy"`
		Sleep  domain.SleepQuality `json:"sleep"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	record, err := h.services.Profile.SubmitDailyRecord(r.Context(), req.State, req.Energy, req.Sleep)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleInsightHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Profile.InsightHistory())
}

func (h *Handler) handleAddInsight(w http.ResponseWriter, r *http.Request) {
	var record domain.InsightRecord
	if !decode(w, r, &record, false) {
		return
	}
	saved, err := h.services.Profile.AddInsightRecord(r.Context(), record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleInsightAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.services.Profile.CheckInsightAvailability(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func (h *Handler) handleRitualHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Profile.RitualHistory())
}

func (h *Handler) handleOpenRituals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Ritual.Open())
}

func (h *Handler) handleBeginRitual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !decode(w, r, &req, true) {
		return
	}
	writeJSON(w, http.StatusCreated, h.services.Ritual.Begin(req.Question))
}

func (h *Handler) handleShakeRitual(w http.ResponseWriter, r *http.Request) {
	session, err := h.services.Ritual.Shake(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleCastRitual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Auto     bool   `json:"auto"`
	}
	if !decode(w, r, &req, true) {
		return
	}
	session, err := h.services.Ritual.Cast(r.Context(), req.Question, req.Auto)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	decision, err := h.services.Ritual.Decide(r.Context(), req.Question)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleHexagrams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Ritual.Catalog())
}

func (h *Handler) handleHexagram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid hexagram id"})
		return
	}
	entry, err := h.services.Ritual.Hexagram(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.services.Profile.Export(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *Handler) handleArchives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Profile.Archives())
}

func (h *Handler) handleGuardianStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Profile.GuardianStatus())
}

func (h *Handler) handleGuardianCheckIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Profile.GuardianCheckIn(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdateEnergy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action domain.EnergyAction `json:"action"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	energy, err := h.services.Profile.UpdateEnergyState(r.Context(), req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, energy)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	today, err := h.services.Profile.Today()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, today)
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Profile.Forecast())
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req application.ChatRequest
	if !decode(w, r, &req, false) {
		return
	}
	result, err := h.services.Oracle.Chat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVision(w http.ResponseWriter, r *http.Request) {
	var req application.VisionRequest
	if !decode(w, r, &req, false) {
		return
	}
	result, err := h.services.Oracle.Vision(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDivination(w http.ResponseWriter, r *http.Request) {
	var req application.DivinationRequest
	if !decode(w, r, &req, false) {
		return
	}
	result, err := h.services.Oracle.Divination(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
