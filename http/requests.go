package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inviqa/mail-relay/log"
	"inviqa/mail-relay/queue"
	"inviqa/mail-relay/request"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxReqIdLength = 64

type coordinator interface {
	Submit(ctx context.Context, keyId uint, m queue.Mail, reqId string) (*request.Request, error)
	LookupStatus(ctx context.Context, keyId uint, reqId string) ([]*request.Status, error)
}

type sendMailRequest struct {
	From    string      `json:"from"`
	To      addressList `json:"to"`
	ReplyTo addressList `json:"replyto"`
	Subject string      `json:"subject"`
	Text    string      `json:"text"`
	Html    string      `json:"html"`
	ReqId   string      `json:"reqID"`
}

type sendMailResponse struct {
	Success bool   `json:"success"`
	ReqId   string `json:"reqID,omitempty"`
	Message string `json:"message"`
}

type mailStatus struct {
	Id        uint       `json:"id"`
	Fulfilled *time.Time `json:"fulfilled"`
	LastError *string    `json:"lasterror"`
}

type mailStatusResponse struct {
	Emails []mailStatus `json:"emails"`
}

type requestsHandler struct {
	coordinator coordinator
	defaultFrom string
}

func (h *requestsHandler) send(w http.ResponseWriter, r *http.Request) {
	var body sendMailRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "the request body is not valid JSON: "+err.Error())
		return
	}

	if body.From == "" {
		body.From = h.defaultFrom
	}
	if err := body.validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	reqId := body.ReqId
	if reqId == "" {
		reqId = uuid.New().String()
	}

	k := authKeyFrom(r.Context())
	m := queue.Mail{
		From:    body.From,
		ReplyTo: strings.Join(body.ReplyTo, ","),
		Subject: body.Subject,
		Text:    body.Text,
		Html:    body.Html,
	}

	var queued int
	for _, to := range body.To {
		m.To = to
		if _, err := h.coordinator.Submit(r.Context(), k.Id, m, reqId); err != nil {
			log.Logger.WithError(err).WithFields(logrus.Fields{
				"keyId": k.Id,
				"reqID": reqId,
			}).Warn("unable to queue a recipient")
			continue
		}
		queued++
	}

	if queued == 0 {
		writeJSON(w, http.StatusServiceUnavailable, sendMailResponse{
			Success: false,
			Message: "the mail could not be queued, try again later",
		})
		return
	}

	writeJSON(w, http.StatusOK, sendMailResponse{
		Success: true,
		ReqId:   reqId,
		Message: fmt.Sprintf("queued %d of %d recipient(s)", queued, len(body.To)),
	})
}

func (h *requestsHandler) status(w http.ResponseWriter, r *http.Request) {
	k := authKeyFrom(r.Context())
	reqId := chi.URLParam(r, "reqID")

	statuses, err := h.coordinator.LookupStatus(r.Context(), k.Id, reqId)
	if err != nil {
		log.Logger.WithError(err).WithField("reqID", reqId).Warn("unable to look up the request status")
		writeMessage(w, http.StatusServiceUnavailable, "the service is temporarily unavailable")
		return
	}

	if len(statuses) == 0 {
		writeMessage(w, http.StatusNotFound, "no mail was found for this request id")
		return
	}

	resp := mailStatusResponse{Emails: make([]mailStatus, 0, len(statuses))}
	for _, s := range statuses {
		ms := mailStatus{Id: s.Id}
		if s.Fulfilled.Valid {
			t := s.Fulfilled.Time.UTC()
			ms.Fulfilled = &t
		}
		if s.LastError.Valid {
			e := s.LastError.String
			ms.LastError = &e
		}
		resp.Emails = append(resp.Emails, ms)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (b sendMailRequest) validate() error {
	switch {
	case b.Text == "" && b.Html == "":
		return errors.New("one of 'text' or 'html' is required")
	case b.Text != "" && b.Html != "":
		return errors.New("only one of 'text' or 'html' is allowed")
	case strings.TrimSpace(b.Subject) == "":
		return errors.New("'subject' is required")
	case !ValidAddress(b.From):
		return errors.New("'from' field failed validation")
	case len(b.To) == 0:
		return errors.New("at least one 'to' address is required")
	case len(b.ReqId) > maxReqIdLength:
		return errors.Errorf("'reqID' must be at most %d characters", maxReqIdLength)
	}

	for _, a := range b.To {
		if !ValidAddress(a) {
			return errors.Errorf("'to' address %q failed validation", a)
		}
	}

	for _, a := range b.ReplyTo {
		if !ValidAddress(a) {
			return errors.Errorf("'replyto' address %q failed validation", a)
		}
	}

	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.WithError(err).Error("unable to write the response body")
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, sendMailResponse{Success: false, Message: msg})
}
