package openstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gophercloud/gophercloud/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

var (
	heatBadParameter   = regexp.MustCompile(`^Parameter '([^']*)' is invalid: (.*)`)
	magnumBadParameter = regexp.MustCompile(`^Unable to find ([^ ]*) (.*).`)
	saharaBadParameter = []*regexp.Regexp{
		regexp.MustCompile(`^[^']*'([^']*)' not found`),
		regexp.MustCompile(`^.* (.*) not found`),
		regexp.MustCompile(`^[^:]*: '([^']*)' is not a '[^']*'`),
	}
)

// errorBody covers the error documents of the OpenStack services we talk to.
type errorBody struct {
	// heat and keystone
	Title string `json:"title"`
	Error struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	} `json:"error"`
	// magnum
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
	// sahara
	ErrorCode    int    `json:"error_code"`
	ErrorName    string `json:"error_name"`
	ErrorMessage string `json:"error_message"`
}

func parseErrorBody(body []byte) (errorBody, bool) {
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return errorBody{}, false
	}
	return b, true
}

// message returns the most specific message found in an error document. Nova and neutron wrap
// their message in an object named after the error.
func message(body []byte) string {
	if b, ok := parseErrorBody(body); ok {
		switch {
		case b.Error.Message != "":
			return b.Error.Message
		case len(b.Errors) > 0 && b.Errors[0].Detail != "":
			return b.Errors[0].Detail
		case b.ErrorMessage != "":
			return b.ErrorMessage
		}
	}

	var wrapped map[string]struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		for _, key := range sortedKeys(wrapped) {
			if wrapped[key].Message != "" {
				return wrapped[key].Message
			}
		}
	}

	return strings.TrimSpace(string(body))
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

// upstreamError reports errors of OpenStack with the status OpenStack answered with. Failing to
// reach OpenStack is reported as a bad gateway.
func upstreamError(err error) error {
	var responseErr gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &responseErr) {
		detail := message(responseErr.Body)
		if detail == "" {
			detail = http.StatusText(responseErr.Actual)
		}
		return errdef.NewUpstream(responseErr.Actual, "%s", detail)
	}
	if isConnectionError(err) {
		return errdef.NewBadGateway("failed to connect to OpenStack: %v", err)
	}
	return err
}

// heatError points at the parameter heat rejected.
func heatError(err error) error {
	var responseErr gophercloud.ErrUnexpectedResponseCode
	if !errors.As(err, &responseErr) {
		return upstreamError(err)
	}
	body, ok := parseErrorBody(responseErr.Body)
	if !ok || body.Error.Message == "" {
		return upstreamError(err)
	}

	detail := body.Error.Message
	var pointer string
	if responseErr.Actual == http.StatusBadRequest {
		if match := heatBadParameter.FindStringSubmatch(detail); match != nil {
			if match[2] != "" {
				detail = match[2]
			}
			pointer = parameterPointer(match[1])
		}
	}

	result := errdef.NewUpstream(responseErr.Actual, "%s", detail)
	if body.Title != "" {
		result = errdef.WithTitle(result, body.Title)
	}
	if pointer != "" {
		result = errdef.WithPointer(result, pointer)
	}
	return result
}

// magnumError reports resources magnum could not find as bad requests pointing at the answer
// naming the resource.
func magnumError(err error, answers map[string]any) error {
	var responseErr gophercloud.ErrUnexpectedResponseCode
	if !errors.As(err, &responseErr) {
		return upstreamError(err)
	}
	detail := message(responseErr.Body)

	status := responseErr.Actual
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		if match := magnumBadParameter.FindStringSubmatch(detail); match != nil {
			return badParameter(detail, match[2], answers)
		}
	}
	return errdef.NewUpstream(status, "%s", detail)
}

// saharaError reports resources sahara could not find and values of the wrong format as bad
// requests pointing at the offending answer.
func saharaError(err error, answers map[string]any) error {
	var responseErr gophercloud.ErrUnexpectedResponseCode
	if !errors.As(err, &responseErr) {
		return upstreamError(err)
	}
	body, ok := parseErrorBody(responseErr.Body)
	if !ok || body.ErrorMessage == "" {
		return upstreamError(err)
	}

	for _, re := range saharaBadParameter {
		if match := re.FindStringSubmatch(body.ErrorMessage); match != nil {
			return badParameter(match[0], match[1], answers)
		}
	}

	status := body.ErrorCode
	if status == 0 {
		status = responseErr.Actual
	}
	result := errdef.NewUpstream(status, "%s", body.ErrorMessage)
	if body.ErrorName != "" {
		result = errdef.WithTitle(result, body.ErrorName)
	}
	return result
}

// badParameter creates a bad request pointing at the answer with the given value if there is one.
func badParameter(detail, value string, answers map[string]any) error {
	result := errdef.WithTitle(errdef.NewUpstream(http.StatusBadRequest, "%s", detail), http.StatusText(http.StatusBadRequest))
	for _, name := range sortedKeys(answers) {
		if answer, ok := answers[name].(string); ok && answer == value {
			return errdef.WithPointer(result, parameterPointer(name))
		}
	}
	return result
}

func parameterPointer(name string) string {
	return fmt.Sprintf("/cluster/parameters/%s", name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
