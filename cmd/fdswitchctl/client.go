package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"

	"github.com/fdswitch/fdswitch/components/frontend"
	"github.com/fdswitch/fdswitch/engine/switcher"
	"github.com/pkg/errors"
)

func httpClient() *http.Client {
	return &http.Client{Timeout: args.timeout}
}

// decodeResponse decodes the body into v, or the error body if the status is not expected
func decodeResponse(resp *http.Response, v interface{}, expected ...int) error {
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	for _, code := range expected {
		if resp.StatusCode == code {
			return errors.Wrap(json.Unmarshal(data, v), "decode response")
		}
	}
	var er frontend.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		return errors.Errorf("%s: %s", resp.Status, er.Error)
	}
	return errors.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data))
}

func listWorlds(query string) {
	u := trimURL() + frontend.PathWorlds
	if query != "" {
		u += "?q=" + url.QueryEscape(query)
	}
	resp, err := httpClient().Get(u)
	checkErrorOrQuit(err, "list worlds failed")

	var wr frontend.WorldsResponse
	checkErrorOrQuit(decodeResponse(resp, &wr, http.StatusOK), "list worlds failed")
	if len(wr.Worlds) == 0 {
		showMsg("no world found")
		return
	}
	for _, w := range wr.Worlds {
		fmt.Printf("%-30s %s\n", w.ID, w.Title)
	}
}

func showStatus() {
	resp, err := httpClient().Get(trimURL() + frontend.PathStatus)
	checkErrorOrQuit(err, "get status failed")

	var sr frontend.StatusResponse
	checkErrorOrQuit(decodeResponse(resp, &sr, http.StatusOK), "get status failed")
	if sr.Presence != nil {
		fmt.Printf("presence: %s\n", sr.Presence)
	} else {
		fmt.Printf("presence: not polled yet\n")
	}
	if sr.HasFile {
		fmt.Printf("selected: %s\n", sr.Selected)
	} else {
		fmt.Printf("selected: none\n")
	}
}

func switchWorld(worldID string) {
	if args.user == "" && args.roles == "" {
		showMsg("no -user or -roles given, the request will most likely be denied")
	}
	body, err := json.Marshal(frontend.SwitchRequest{World: worldID, UserID: args.user, RoleIDs: roleIDs()})
	checkErrorOrQuit(err, "encode request failed")

	showMsg("switching to world %s ...", worldID)
	resp, err := httpClient().Post(trimURL()+frontend.PathSwitch, "application/json", bytes.NewReader(body))
	checkErrorOrQuit(err, "switch failed")

	var sr frontend.SwitchResponse
	checkErrorOrQuit(decodeResponse(resp, &sr,
		http.StatusOK, http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusBadGateway), "switch failed")
	fmt.Println(sr.Message)
	if sr.Outcome != switcher.Succeeded {
		os.Exit(3)
	}
}
