package usecase

import (
	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// KeywordUsecase handles keyword administration
type KeywordUsecase struct {
	keywords *domain.KeywordSet
	log      zerolog.Logger
}

// NewKeywordUsecase creates a new keyword usecase
func NewKeywordUsecase(keywords *domain.KeywordSet) *KeywordUsecase {
	metrics.KeywordCount.Set(float64(keywords.Len()))
	return &KeywordUsecase{
		keywords: keywords,
		log:      logging.Component("KeywordUC"),
	}
}

// Add adds a keyword. It returns the normalized keyword and false if it
// was empty or already monitored.
func (uc *KeywordUsecase) Add(word string) (string, bool) {
	kw, ok := uc.keywords.Add(word)
	if ok {
		uc.log.Info().Str("keyword", kw).Msg("keyword added")
		metrics.KeywordCount.Set(float64(uc.keywords.Len()))
	}
	return kw, ok
}

// Remove removes a keyword. It returns false if the keyword was not monitored.
func (uc *KeywordUsecase) Remove(word string) (string, bool) {
	kw, ok := uc.keywords.Remove(word)
	if ok {
		uc.log.Info().Str("keyword", kw).Msg("keyword removed")
		metrics.KeywordCount.Set(float64(uc.keywords.Len()))
	}
	return kw, ok
}

// List returns the monitored keywords in insertion order
func (uc *KeywordUsecase) List() []string {
	return uc.keywords.Snapshot()
}
