package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/dkotenko/addrhub/internal/client/repositories/records"
	"github.com/dkotenko/addrhub/internal/logging"
)

// Wire shapes for the per-vertical list endpoints.

type StatusWire struct {
	Statuses []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Created int64  `json:"created"`
	} `json:"statuses"`
}

type NowWire struct {
	Now struct {
		Content string `json:"content"`
		Updated int64  `json:"updated"`
		Listed  int    `json:"listed"`
	} `json:"now"`
}

type PasteWire struct {
	Pastebin []struct {
		Title      string `json:"title"`
		Content    string `json:"content"`
		ModifiedOn int64  `json:"modified_on"`
		Listed     int    `json:"listed"`
	} `json:"pastebin"`
}

type PictureWire struct {
	Pics []struct {
		ID          string `json:"id"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Created     int64  `json:"created"`
	} `json:"pics"`
}

type PURLWire struct {
	PURLs []struct {
		Name    string `json:"name"`
		URL     string `json:"url"`
		Counter int64  `json:"counter"`
		Listed  int    `json:"listed"`
	} `json:"purls"`
}

type PageWire struct {
	Web struct {
		Content string `json:"content"`
		Updated int64  `json:"updated"`
	} `json:"web"`
}

type WeblogWire struct {
	Entries []struct {
		Entry string `json:"entry"`
		Body  string `json:"body"`
		Date  int64  `json:"date"`
	} `json:"entries"`
}

// Statuses builds the status-update repository. Natural key: status id.
func Statuses(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[StatusWire] {
	return NewRepository(Vertical[StatusWire]{
		Name:     "statuses",
		ListPath: func(a string) string { return "/address/" + a + "/statuses" },
		FromWire: func(address string, w StatusWire) []records.Record {
			out := make([]records.Record, 0, len(w.Statuses))
			for _, s := range w.Statuses {
				out = append(out, records.Record{
					Address:   address,
					Key:       s.ID,
					Content:   s.Content,
					CreatedAt: time.Unix(s.Created, 0).UTC(),
					Listed:    true,
					Submitted: true,
				})
			}
			return out
		},
		SavePath: func(rec records.Record) string { return "/address/" + rec.Address + "/statuses" },
		SaveBody: func(rec records.Record) any {
			return map[string]string{"id": rec.Key, "content": rec.Content}
		},
		DeletePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/statuses/" + rec.Key
		},
	}, api, authz, store, log)
}

// Now builds the now-page repository. The page is a singleton per
// address, keyed by the address itself.
func Now(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[NowWire] {
	return NewRepository(Vertical[NowWire]{
		Name:     "now_pages",
		ListPath: func(a string) string { return "/address/" + a + "/now" },
		FromWire: func(address string, w NowWire) []records.Record {
			return []records.Record{{
				Address:   address,
				Key:       address,
				Content:   w.Now.Content,
				CreatedAt: time.Unix(w.Now.Updated, 0).UTC(),
				Listed:    w.Now.Listed != 0,
				Submitted: true,
			}}
		},
		SavePath: func(rec records.Record) string { return "/address/" + rec.Address + "/now" },
		SaveBody: func(rec records.Record) any {
			return map[string]any{"content": rec.Content, "listed": boolToInt(rec.Listed)}
		},
		DeletePath: func(rec records.Record) string { return "/address/" + rec.Address + "/now" },
	}, api, authz, store, log)
}

// Pastes builds the pastebin repository. Natural key: paste title.
func Pastes(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[PasteWire] {
	return NewRepository(Vertical[PasteWire]{
		Name:     "pastes",
		ListPath: func(a string) string { return "/address/" + a + "/pastebin" },
		FromWire: func(address string, w PasteWire) []records.Record {
			out := make([]records.Record, 0, len(w.Pastebin))
			for _, p := range w.Pastebin {
				out = append(out, records.Record{
					Address:   address,
					Key:       p.Title,
					Content:   p.Content,
					CreatedAt: time.Unix(p.ModifiedOn, 0).UTC(),
					Listed:    p.Listed != 0,
					Submitted: true,
				})
			}
			return out
		},
		SavePath: func(rec records.Record) string { return "/address/" + rec.Address + "/pastebin" },
		SaveBody: func(rec records.Record) any {
			return map[string]any{"title": rec.Key, "content": rec.Content, "listed": boolToInt(rec.Listed)}
		},
		DeletePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/pastebin/" + rec.Key
		},
	}, api, authz, store, log)
}

// Pictures builds the pictures repository. Natural key: picture id; the
// cached content is the picture URL plus description.
func Pictures(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[PictureWire] {
	return NewRepository(Vertical[PictureWire]{
		Name:     "pictures",
		ListPath: func(a string) string { return "/address/" + a + "/pics" },
		FromWire: func(address string, w PictureWire) []records.Record {
			out := make([]records.Record, 0, len(w.Pics))
			for _, p := range w.Pics {
				out = append(out, records.Record{
					Address:   address,
					Key:       p.ID,
					Content:   p.URL + "\n" + p.Description,
					CreatedAt: time.Unix(p.Created, 0).UTC(),
					Listed:    true,
					Submitted: true,
				})
			}
			return out
		},
		SavePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/pics/" + rec.Key
		},
		SaveBody: func(rec records.Record) any {
			return map[string]string{"description": rec.Content}
		},
		DeletePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/pics/" + rec.Key
		},
	}, api, authz, store, log)
}

// PURLs builds the persistent-URL repository. Natural key: PURL name;
// the cached content is the target URL.
func PURLs(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[PURLWire] {
	return NewRepository(Vertical[PURLWire]{
		Name:     "purls",
		ListPath: func(a string) string { return "/address/" + a + "/purls" },
		FromWire: func(address string, w PURLWire) []records.Record {
			out := make([]records.Record, 0, len(w.PURLs))
			for _, p := range w.PURLs {
				out = append(out, records.Record{
					Address:   address,
					Key:       p.Name,
					Content:   p.URL,
					CreatedAt: time.Unix(0, 0).UTC(),
					Listed:    p.Listed != 0,
					Submitted: true,
				})
			}
			return out
		},
		SavePath: func(rec records.Record) string { return "/address/" + rec.Address + "/purl" },
		SaveBody: func(rec records.Record) any {
			return map[string]any{"name": rec.Key, "url": rec.Content, "listed": boolToInt(rec.Listed)}
		},
		DeletePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/purl/" + rec.Key
		},
	}, api, authz, store, log)
}

// Pages builds the profile web-page repository. Like the now page, a
// singleton per address keyed by the address itself.
func Pages(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[PageWire] {
	return NewRepository(Vertical[PageWire]{
		Name:     "pages",
		ListPath: func(a string) string { return "/address/" + a + "/web" },
		FromWire: func(address string, w PageWire) []records.Record {
			return []records.Record{{
				Address:   address,
				Key:       address,
				Content:   w.Web.Content,
				CreatedAt: time.Unix(w.Web.Updated, 0).UTC(),
				Listed:    true,
				Submitted: true,
			}}
		},
		SavePath: func(rec records.Record) string { return "/address/" + rec.Address + "/web" },
		SaveBody: func(rec records.Record) any {
			return map[string]any{"content": rec.Content, "publish": true}
		},
		DeletePath: func(rec records.Record) string { return "/address/" + rec.Address + "/web" },
	}, api, authz, store, log)
}

// Weblog builds the weblog-entry repository. Natural key: entry id.
func Weblog(api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[WeblogWire] {
	return NewRepository(Vertical[WeblogWire]{
		Name:     "weblog_entries",
		ListPath: func(a string) string { return "/address/" + a + "/weblog/entries" },
		FromWire: func(address string, w WeblogWire) []records.Record {
			out := make([]records.Record, 0, len(w.Entries))
			for _, e := range w.Entries {
				out = append(out, records.Record{
					Address:   address,
					Key:       e.Entry,
					Content:   e.Body,
					CreatedAt: time.Unix(e.Date, 0).UTC(),
					Listed:    true,
					Submitted: true,
				})
			}
			return out
		},
		SavePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/weblog/entry/" + rec.Key
		},
		SaveBody: func(rec records.Record) any { return map[string]string{"body": rec.Content} },
		DeletePath: func(rec records.Record) string {
			return "/address/" + rec.Address + "/weblog/delete/" + rec.Key
		},
	}, api, authz, store, log)
}

// NewLocalRecord mints a record for content created on this device, with
// a fresh natural key and the optimistic-write flags set.
func NewLocalRecord(address, content string) records.Record {
	return records.Record{
		Address:   address,
		Key:       uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Listed:    true,
		Submitted: true,
	}
}

// NewKeyedRecord mints a record whose natural key the user chose (paste
// title, PURL name).
func NewKeyedRecord(address, key, content string) records.Record {
	return records.Record{
		Address:   address,
		Key:       key,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Listed:    true,
		Submitted: true,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
