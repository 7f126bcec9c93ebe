package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/calorie-tracker/internal/convert"
	"github.com/and161185/calorie-tracker/internal/model"
)

// --- accounts ---

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	c, err := s.credentials(w, r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	id, err := s.auth.Register(r.Context(), c.Username, c.Password, c.Confirmation)
	if err != nil {
		writeError(w, r, s.log, err, msgUserExists)
		return
	}
	s.log.Info("user registered", zap.Int64("user", id))
	writeJSON(w, http.StatusCreated, convert.UserView{ID: id, Username: c.Username})
}

type loginResponse struct {
	User        convert.UserView `json:"user"`
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	c, err := s.credentials(w, r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	tok, u, err := s.auth.LoginWithIP(r.Context(), c.Username, c.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.setSessionCookie(w, tok)
	writeJSON(w, http.StatusOK, loginResponse{
		User:        convert.ToUserView(u),
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt,
	})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	u, err := s.auth.Whoami(r.Context(), uid)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserView(u))
}

// --- catalog ---

func (s *Server) listFoods(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	foods, err := s.foods.Visible(r.Context(), uid)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToFoodViews(foods, s.opts.SystemUserID))
}

func (s *Server) addFood(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())

	var f model.Food
	if isJSON(r) {
		var req convert.FoodRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		f = convert.FromFoodRequest(req)
	} else {
		if err := parseForm(w, r); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		var err error
		if f, err = convert.FoodFromForm(r.PostForm); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	}

	created, err := s.foods.Add(r.Context(), uid, f)
	if err != nil {
		writeError(w, r, s.log, err, msgFoodExists)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToFoodViews([]model.Food{created}, s.opts.SystemUserID)[0])
}

// --- statistics ---

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	list, err := s.stats.History(r.Context(), uid)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToStatisticsViews(list))
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())

	var in model.DailyInput
	if isJSON(r) {
		var req convert.DailyInputRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		var err error
		if in, err = convert.FromDailyInputRequest(req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	} else {
		if err := parseForm(w, r); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		var err error
		if in, err = convert.DailyInputFromForm(r.PostForm); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	}

	ds, err := s.stats.Record(r.Context(), uid, in)
	if err != nil {
		writeError(w, r, s.log, err, msgDateExists)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToDailyView(ds))
}

func (s *Server) dateVar(r *http.Request) (time.Time, error) {
	return convert.Date(mux.Vars(r)["date"])
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	date, err := s.dateVar(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ds, err := s.stats.Detail(r.Context(), uid, date)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToDailyView(ds))
}

func (s *Server) deleteDay(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	date, err := s.dateVar(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.stats.Delete(r.Context(), uid, date); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

