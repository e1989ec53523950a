package test

import (
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockHttpClient records the URLs posted to instead of sending anything.
type MockHttpClient struct {
	sync.Mutex
	posted       []string
	returnErrors bool
}

func NewMockHttpClient() *MockHttpClient {
	return &MockHttpClient{}
}

func (m *MockHttpClient) Post(url, contentType string, body io.Reader) (resp *http.Response, err error) {
	m.Lock()
	defer m.Unlock()

	if m.returnErrors {
		return nil, errors.New("oops")
	}

	m.posted = append(m.posted, url)

	return &http.Response{StatusCode: http.StatusOK}, nil
}

func (m *MockHttpClient) Posted(url string) bool {
	m.Lock()
	defer m.Unlock()

	for _, p := range m.posted {
		if p == url {
			return true
		}
	}

	return false
}

func (m *MockHttpClient) PostCount() int {
	m.Lock()
	defer m.Unlock()
	return len(m.posted)
}

func (m *MockHttpClient) ReturnErrors() {
	m.Lock()
	defer m.Unlock()
	m.returnErrors = true
}
