package job

import (
	"io"
	"net/http"
	"strings"

	"inviqa/mail-relay/log"
)

type httpPoster interface {
	Post(url, contentType string, body io.Reader) (resp *http.Response, err error)
}

// SidecarQuitter asks a sidecar proxy to exit once a one-shot job is done,
// so the pod running the job can complete.
type SidecarQuitter struct {
	QuitSidecar     bool
	Client          httpPoster
	sidecarProxyUrl string
}

func (s *SidecarQuitter) EnableSideCarProxyQuit(proxyUrl string) {
	s.QuitSidecar = true
	s.sidecarProxyUrl = strings.TrimSuffix(proxyUrl, "/")
}

func (s *SidecarQuitter) Quit() error {
	resp, err := s.Client.Post(s.sidecarProxyUrl+"/quitquitquit", "text/plain", nil)
	if err != nil {
		log.Logger.WithError(err).Error("unexpected error received from sidecar proxy /quitquitquit")
		return err
	}

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	log.Logger.WithField("proxy", s.sidecarProxyUrl).Info("asked the sidecar proxy to quit")

	return nil
}
