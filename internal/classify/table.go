package classify

import "regexp"

// Table drives content-based component and step detection, keyed by
// application. Rules are ordered: the first matching component wins.
type Table map[string][]Rule

// Rule binds one component to the message patterns that identify it,
// plus optional per-step patterns within the component.
type Rule struct {
	Component string
	Patterns  []*regexp.Regexp
	Steps     []StepRule
}

type StepRule struct {
	Step     string
	Patterns []*regexp.Regexp
}

func res(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// DefaultTable returns the deployment's component/step pattern table.
// Patterns are matched against lowercased message content.
func DefaultTable() Table {
	return Table{
		"sports-scheduler": {
			{
				Component: "iptv-orchestrator",
				Patterns:  res(`iptv.?refresh`, `orchestrator`, `workflow`, `sports_scheduler\.iptv_orchestrator`, `\[refresh-\d+\]`),
				// Step names match the structured per-step file names so
				// content-derived and path-derived records land in the
				// same step sets.
				Steps: []StepRule{
					{"step1-purge_xtream", res(`step\s*1/8`, `step\s*1\s*:`, `purg.*xtream`)},
					{"step2-refresh_channels", res(`step\s*2/8`, `step\s*2\s*:`, `refresh.*xtream.*channels`)},
					{"step3-refresh_xtream_epg", res(`step\s*3/8`, `step\s*3\s*:`, `refresh.*xtream.*epg`)},
					{"step4-purge_epg_db", res(`step\s*4/8`, `step\s*4\s*:`, `purg.*epg.*database`)},
					{"step5-refresh_epg_db", res(`step\s*5/8`, `step\s*5\s*:`, `refresh.*epg.*database`)},
					{"step6-generate_playlist", res(`step\s*6/8`, `step\s*6\s*:`, `generat.*sports.*playlist`)},
					{"step7-refresh_channels_dvr", res(`step\s*7/8`, `step\s*7\s*:`, `refresh.*channels.*dvr`)},
					{"step8-automated_recordings", res(`step\s*8/8`, `step\s*8\s*:`, `automated.*record`)},
				},
			},
			{
				Component: "epg-processor",
				Patterns:  res(`epg.?processor`, `epg.?refresh`, `xmltv`),
				Steps: []StepRule{
					{"fetch", res(`fetch.*epg`, `downloading.*epg`)},
					{"parse", res(`pars.*epg`, `parsing.*xmltv`)},
					{"store", res(`stor.*epg`, `saving.*epg`)},
				},
			},
			{
				Component: "channel-scanner",
				Patterns:  res(`channel.?scanner`, `scan.*channels`, `channel.?refresh`),
			},
			{
				Component: "playlist-generator",
				Patterns:  res(`playlist.?generator`, `generate.*playlist`, `m3u.*generation`),
			},
			{
				Component: "scheduler",
				Patterns:  res(`scheduler`, `cron`, `schedule.*task`),
			},
		},
		"auto-scraper": {
			{
				Component: "list-creator",
				Patterns:  res(`list.?creator`, `list.?creation`, `create.*list`),
				Steps: []StepRule{
					{"fetch", res(`fetch.*items`, `retriev.*items`)},
					{"filter", res(`filter.*items`)},
					{"create", res(`creat.*list`)},
					{"publish", res(`publish.*list`, `publish.*trakt`)},
				},
			},
			{
				Component: "scraper",
				Patterns:  res(`scraper`, `scrape.*job`, `scraping`),
			},
			{
				Component: "trakt-sync",
				Patterns:  res(`trakt.?sync`, `trakt.?service`, `sync.*trakt`),
			},
			{
				Component: "scheduler",
				Patterns:  res(`scheduler`, `cron`, `schedule.*job`),
			},
		},
	}
}

// DefaultStepNames maps workflow step numbers to the per-step log file
// names used by the structured iptv-orchestrator layout.
func DefaultStepNames() map[int]string {
	return map[int]string{
		1: "step1-purge_xtream",
		2: "step2-refresh_channels",
		3: "step3-refresh_xtream_epg",
		4: "step4-purge_epg_db",
		5: "step5-refresh_epg_db",
		6: "step6-generate_playlist",
		7: "step7-refresh_channels_dvr",
		8: "step8-automated_recordings",
		9: "step9-create_collections",
	}
}
