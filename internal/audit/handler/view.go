package handler

import (
	"github.com/mssola/useragent"

	audit "datatrail/pkg/platform/audit"
)

type entryView struct {
	audit.Entry
	Client *clientView `json:"client,omitempty"`
}

// clientView summarizes the user agent recorded on an entry.
type clientView struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// clientCache parses each distinct user agent once per response.
type clientCache map[string]*clientView

func newClientCache() clientCache {
	return make(clientCache)
}

func (c clientCache) lookup(raw string) *clientView {
	if v, ok := c[raw]; ok {
		return v
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	v := &clientView{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
	c[raw] = v
	return v
}

func viewOf(e audit.Entry, clients clientCache) entryView {
	v := entryView{Entry: e}
	if e.UserAgent != nil && *e.UserAgent != "" {
		v.Client = clients.lookup(*e.UserAgent)
	}
	return v
}
