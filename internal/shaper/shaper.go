// Package shaper projects raw search results into the published wire schema.
package shaper

import (
	"net/url"
	"strings"
	"time"

	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/models"
)

// Shape maps raw search results into Articles, dropping malformed items
// rather than failing. It returns the valid articles in input order plus
// the number of items dropped. Shape is pure: same input, same output,
// and re-shaping its own output changes nothing.
func Shape(raw []guardian.RawItem) ([]models.Article, int) {
	articles := make([]models.Article, 0, len(raw))
	dropped := 0

	for _, item := range raw {
		article, ok := shapeOne(item)
		if !ok {
			dropped++

			continue
		}

		articles = append(articles, article)
	}

	return articles, dropped
}

func shapeOne(item guardian.RawItem) (models.Article, bool) {
	if strings.TrimSpace(item.WebTitle) == "" {
		return models.Article{}, false
	}

	// time.Parse tolerates fractional seconds the layout omits, which
	// covers both timestamp shapes the API emits.
	published, err := time.Parse(time.RFC3339, item.WebPublicationDate)
	if err != nil {
		return models.Article{}, false
	}

	if !isAbsoluteURL(item.WebURL) {
		return models.Article{}, false
	}

	return models.Article{
		WebPublicationDate: published.UTC(),
		WebTitle:           item.WebTitle,
		WebURL:             item.WebURL,
	}, true
}

func isAbsoluteURL(value string) bool {
	if value == "" {
		return false
	}

	u, err := url.Parse(value)
	if err != nil {
		return false
	}

	return u.IsAbs() && u.Host != ""
}
