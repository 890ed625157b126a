package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// encoding/json never treats arrays or structs as empty, so omitempty on these
// fields would only suggest an omission that does not happen.
func TestModels_NoJSONOmitEmptyOnIDsAndTimes(t *testing.T) {
	fixedSize := map[reflect.Type]bool{
		reflect.TypeOf(primitive.ObjectID{}): true,
		reflect.TypeOf(time.Time{}):          true,
	}
	for _, m := range []interface{}{Book{}, Booking{}, Category{}, EmailTemplate{}, Payment{}, Report{}, User{}} {
		typ := reflect.TypeOf(m)
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !fixedSize[field.Type] {
				continue
			}
			assert.NotContains(t, strings.Split(field.Tag.Get("json"), ",")[1:], "omitempty",
				"%s.%s", typ.Name(), field.Name)
		}
	}
}

func TestBook_JSONCarriesHexID(t *testing.T) {
	id := primitive.NewObjectID()
	raw, err := json.Marshal(Book{ID: id, Name: "Dune"})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, id.Hex(), out["_id"])
}

func TestBook_BSONOmitsZeroID(t *testing.T) {
	raw, err := bson.Marshal(Book{Name: "Dune"})
	require.NoError(t, err)

	_, err = bson.Raw(raw).LookupErr("_id")
	assert.Error(t, err, "a zero id must be left for the server to assign")
}
