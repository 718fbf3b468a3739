package api

import (
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/pipeline"
)

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}

type StatusResponse struct {
	Object   string            `json:"object"`
	Backend  string            `json:"backend,omitempty"`
	Device   string            `json:"device,omitempty"`
	Progress pipeline.Progress `json:"progress"`
}

type HitRecord struct {
	Seq int `json:"seq"`
	layout.Hit
	// Display is the hit as printed in logs.
	Display string `json:"display"`
}

type HitList struct {
	Object string      `json:"object"`
	Data   []HitRecord `json:"data"`
	Total  int         `json:"total"`
}

type WorkersRequest struct {
	Workers *int `json:"workers"`
}

type WorkersResponse struct {
	Workers int `json:"workers"`
}

type StopResponse struct {
	Stopping bool   `json:"stopping"`
	State    string `json:"state"`
}
