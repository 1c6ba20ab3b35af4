package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	v1 "github.com/pojntfx/atorrent/pkg/api/http/v1"
	"github.com/pojntfx/atorrent/pkg/metainfo"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Manager talks to a gateway's HTTP API.
type Manager struct {
	url      string
	username string
	password string
	ctx      context.Context
}

func NewManager(
	url string,
	username string,
	password string,
	ctx context.Context,
) *Manager {
	return &Manager{
		url:      url,
		username: username,
		password: password,
		ctx:      ctx,
	}
}

// GetInfo resolves a magnet link or torrent URL into a metadata record via
// the gateway's info endpoint.
func (m *Manager) GetInfo(identifier string) (metainfo.Record, error) {
	hc := &http.Client{}

	baseURL, err := url.Parse(m.url)
	if err != nil {
		return metainfo.Record{}, err
	}

	infoSuffix, err := url.Parse("/info")
	if err != nil {
		return metainfo.Record{}, err
	}

	infoURL := baseURL.ResolveReference(infoSuffix)

	q := infoURL.Query()
	q.Set("magnet", identifier)
	infoURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(m.ctx, http.MethodGet, infoURL.String(), http.NoBody)
	if err != nil {
		return metainfo.Record{}, err
	}
	req.SetBasicAuth(m.username, m.password)

	res, err := hc.Do(req)
	if err != nil {
		return metainfo.Record{}, err
	}
	if res.Body != nil {
		defer res.Body.Close()
	}
	if res.StatusCode != http.StatusOK {
		return metainfo.Record{}, errors.New(res.Status)
	}

	record := metainfo.Record{}
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&record); err != nil {
		return metainfo.Record{}, err
	}

	return record, nil
}

// Add submits an acquisition request to the gateway. The returned result
// carries the failing stage when the workflow halted early.
func (m *Manager) Add(request v1.AcquisitionRequest) (v1.AcquisitionResult, error) {
	hc := &http.Client{}

	baseURL, err := url.Parse(m.url)
	if err != nil {
		return v1.AcquisitionResult{}, err
	}

	addSuffix, err := url.Parse("/add")
	if err != nil {
		return v1.AcquisitionResult{}, err
	}

	addURL := baseURL.ResolveReference(addSuffix)

	body, err := json.Marshal(request)
	if err != nil {
		return v1.AcquisitionResult{}, err
	}

	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, addURL.String(), bytes.NewReader(body))
	if err != nil {
		return v1.AcquisitionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.username, m.password)

	res, err := hc.Do(req)
	if err != nil {
		return v1.AcquisitionResult{}, err
	}
	if res.Body != nil {
		defer res.Body.Close()
	}

	result := v1.AcquisitionResult{}
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&result); err != nil {
		return v1.AcquisitionResult{}, err
	}

	if result.Error != "" {
		return result, errors.New(result.Error)
	}
	if res.StatusCode != http.StatusOK {
		return result, errors.New(res.Status)
	}

	return result, nil
}
