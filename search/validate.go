package search

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"music-search-api-go/apperrors"
	"music-search-api-go/keys"
)

// searchRequest lists Limit first so its error is reported before the others
type searchRequest struct {
	Limit  int    `validate:"min=1,max=100"`
	Artist string `validate:"max=200"`
	Song   string `validate:"max=200"`
}

var validate = validator.New()

func validateSearch(artist, song string, limit int) error {
	err := validate.Struct(searchRequest{Limit: limit, Artist: artist, Song: song})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(apperrors.KindInternal, "validating search request", err)
	}

	switch field := verrs[0].Field(); field {
	case "Limit":
		return apperrors.Wrap(apperrors.KindInvalidLimit, fmt.Sprintf("limit must be between 1 and 100, got %d", limit), err)
	default:
		return apperrors.Wrap(apperrors.KindInputTooLong, fmt.Sprintf("%s exceeds %d characters", field, keys.MaxInputLength), err)
	}
}
