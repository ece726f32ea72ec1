package nfwrap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const tokenScheme = "Latch-Execution-Token"

// Provisioner asks the dispatcher for a shared volume the engine's tasks can mount
type Provisioner interface {
	Provision(ctx context.Context, token string) (claimName string, err error)
}

// DispatcherProvisioner calls the dispatcher's provision-storage endpoint.
// There is no retry; a failed request fails the run.
type DispatcherProvisioner struct {
	client     *resty.Client
	url        string
	storageGiB int
}

type provisionRequest struct {
	StorageGiB int `json:"storage_gib"`
}

type provisionResponse struct {
	Name string `json:"name"`
}

// NewDispatcherProvisioner ..
func NewDispatcherProvisioner(conf ProvisionerConfig) *DispatcherProvisioner {
	client := resty.New().
		SetTimeout(conf.Timeout).
		SetHeader("Content-Type", "application/json")
	return &DispatcherProvisioner{
		client:     client,
		url:        conf.URL,
		storageGiB: conf.StorageGiB,
	}
}

// Provision returns the name of the provisioned storage claim
func (p *DispatcherProvisioner) Provision(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", configErrorf("failed to provision storage", "no execution token; %v is not set", executionTokenEnvVar)
	}
	logrus.Infof("requesting %d GiB of storage from %v", p.storageGiB, p.url)
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", tokenScheme+" "+token).
		SetBody(provisionRequest{StorageGiB: p.storageGiB}).
		Post(p.url)
	if err != nil {
		return "", &ProvisioningError{err: err}
	}
	if !resp.IsSuccess() {
		return "", &ProvisioningError{resp.StatusCode(), fmt.Errorf("%s", resp.String())}
	}
	out := &provisionResponse{}
	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return "", &ProvisioningError{resp.StatusCode(), fmt.Errorf("failed to decode response: %w", err)}
	}
	if out.Name == "" {
		return "", &ProvisioningError{resp.StatusCode(), fmt.Errorf("response carries no storage claim name")}
	}
	logrus.Infof("provisioned storage claim %v", out.Name)
	return out.Name, nil
}
