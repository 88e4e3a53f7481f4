package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag).
		SetHeader("X-Auth-Login", loginFlag).
		SetTimeout(30 * time.Second)
}

func runGetMessages(client *resty.Client, deviceID string, limit int, raw bool, out io.Writer) error {
	req := client.R().SetQueryParam("limit", fmt.Sprintf("%d", limit))
	if deviceID != "" {
		req.SetQueryParam("device_id", deviceID)
	}
	if raw {
		req.SetQueryParam("apply_filters", "0")
	}

	resp, err := req.Get("/get-sms")
	if err != nil {
		return err
	}
	return writeResponse(resp, out)
}

func runGetDevices(client *resty.Client, out io.Writer) error {
	resp, err := client.R().Get("/get-device-ids")
	if err != nil {
		return err
	}
	return writeResponse(resp, out)
}

func runExportFilters(client *resty.Client, out io.Writer) error {
	resp, err := client.R().Get("/export-filters")
	if err != nil {
		return err
	}
	return writeResponse(resp, out)
}

func runImportFilters(client *resty.Client, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post("/import-filters")
	if err != nil {
		return err
	}
	return writeResponse(resp, out)
}

func writeResponse(resp *resty.Response, out io.Writer) error {
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, err := fmt.Fprintln(out, resp.String())
	return err
}
