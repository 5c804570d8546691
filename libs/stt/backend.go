// Package stt is a client for the hosted speech-to-text service. Media is
// submitted by URL, transcribed asynchronously, and polled for results.
package stt

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.speechcatcher.io/v1"

// Backend is an interface for making calls against the transcription service.
// This interface exists to enable mocking during testing if needed.
type Backend interface {
	Call(method, path, key string, v interface{}) error
	CallMultipart(method, path, key, boundary string, body io.Reader, v interface{}) error
}

// BackendConfiguration is the internal implementation for making HTTP calls
// to the transcription service.
type BackendConfiguration struct {
	APIURL     string
	HTTPClient *http.Client
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// GetBackend returns the default backend pointed at the hosted API.
func GetBackend() Backend {
	return BackendConfiguration{
		APIURL:     defaultAPIURL,
		HTTPClient: httpClient,
	}
}

// SetHTTPClient overrides the default HTTP client.
func SetHTTPClient(client *http.Client) {
	httpClient = client
}

func (s BackendConfiguration) CallMultipart(method, path, key, boundary string, body io.Reader, v interface{}) error {
	contentType := "multipart/form-data; boundary=" + boundary

	req, err := s.NewRequest(method, path, key, contentType, body)
	if err != nil {
		return err
	}

	return s.Do(req, v)
}

func (s BackendConfiguration) Call(method, path, key string, v interface{}) error {
	req, err := s.NewRequest(method, path, key, "", nil)
	if err != nil {
		return err
	}

	return s.Do(req, v)
}

// NewRequest is used by Call to generate an http.Request.
func (s BackendConfiguration) NewRequest(method, path, key, contentType string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	path = apiURL + path

	req, err := http.NewRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}

	req.Header.Add("Authorization", "Bearer "+key)

	return req, nil
}

// Do executes an API request and parses the response into v. Non-2xx
// responses are unmarshaled into a structured Error.
func (s BackendConfiguration) Do(req *http.Request, v interface{}) error {
	client := s.HTTPClient
	if client == nil {
		client = httpClient
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= 400 {
		var sErr Error
		if err := json.Unmarshal(resBody, &sErr); err != nil || sErr.Status == 0 {
			sErr.Status = res.StatusCode
			sErr.Message = strings.TrimSpace(string(resBody))
		}
		return &sErr
	}

	if v != nil {
		return json.Unmarshal(resBody, v)
	}

	return nil
}
