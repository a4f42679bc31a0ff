package reddit

import "time"

// Link is a submission as returned by the listing endpoints.
type Link struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"` // fullname, e.g. t3_abc123
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Created returns the submission time as time.Time.
func (l *Link) Created() time.Time {
	return time.Unix(int64(l.CreatedUTC), 0).UTC()
}

// Account is the authenticated user, from /api/v1/me.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listing mirrors the envelope around listing responses.
type listing struct {
	Data struct {
		Children []struct {
			Data *Link `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (l *listing) links() []*Link {
	out := make([]*Link, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		if c.Data != nil {
			out = append(out, c.Data)
		}
	}
	return out
}

// commentResponse mirrors the api_type=json envelope of /api/comment.
type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// SearchOptions narrow a subreddit search.
type SearchOptions struct {
	Sort       string // relevance, new, top
	TimeFilter string // hour, day, week, month, year, all
	Limit      int
}
