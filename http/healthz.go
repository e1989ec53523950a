package http

import (
	"net"
	"net/http"
	"time"

	"inviqa/mail-relay/log"
)

const dialTimeout = time.Second

type healthzHandler struct {
	brokerAddrs []string
	db          Pinger
}

type Pinger interface {
	Ping() error
}

type healthzResponse struct {
	Store  bool  `json:"store"`
	Broker *bool `json:"broker,omitempty"`
}

// NewHealthzHandler reports liveness from the store alone. With ?readiness=1
// every broker address must also accept a TCP connection.
func NewHealthzHandler(brokerAddrs []string, db Pinger) http.Handler {
	return &healthzHandler{
		brokerAddrs: brokerAddrs,
		db:          db,
	}
}

func (h healthzHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	resp := healthzResponse{Store: h.checkDatabase()}
	healthy := resp.Store

	if req.URL.Query().Get("readiness") == "1" {
		broker := h.checkBrokers()
		resp.Broker = &broker
		healthy = healthy && broker
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

func (h healthzHandler) checkDatabase() bool {
	if err := h.db.Ping(); err != nil {
		log.Logger.WithError(err).Debug("database is not available or there is a problem with connectivity")
		return false
	}
	return true
}

func (h healthzHandler) checkBrokers() bool {
	healthy := true
	for _, host := range h.brokerAddrs {
		log.Logger.Debugf("checking connectivity to %s", host)
		conn, err := net.DialTimeout("tcp", host, dialTimeout)
		if err != nil {
			healthy = false
			log.Logger.Debugf("unable to connect to %s", host)
		} else {
			_ = conn.Close()
		}
	}
	return healthy
}
