package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmtrack/backend/internal/interfaces/http/dto"
)

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	t.Run("names fields by json tag", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&dto.MoveRequest{ZoneID: "not-a-uuid", FunctionType: "sleeping"})
		require.Error(t, err)

		details := ValidationDetails(err)
		byField := map[string]string{}
		for _, d := range details {
			byField[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid UUID format", byField["zone_id"])
		assert.Contains(t, byField["function_type"], "Must be one of")
	})

	t.Run("reports missing resolutions", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&dto.ReconcileRequest{})
		require.Error(t, err)

		details := ValidationDetails(err)
		require.Len(t, details, 1)
		assert.Equal(t, "resolutions", details[0].Field)
		assert.Equal(t, "This field is required", details[0].Message)
	})

	t.Run("rejects non uuid map keys", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&dto.ReconcileRequest{
			Resolutions: map[string]string{"cow-7": "skip"},
		})
		require.Error(t, err)
		assert.NotEmpty(t, ValidationDetails(err))
	})

	t.Run("other errors yield nil", func(t *testing.T) {
		assert.Nil(t, ValidationDetails(errors.New("unexpected EOF")))
	})
}
