package services

import "go.mongodb.org/mongo-driver/mongo"

// UpdateResult is the outcome of a single-document update, shaped for JSON responses.
type UpdateResult struct {
	Acknowledged  bool        `json:"acknowledged"`
	MatchedCount  int64       `json:"matchedCount"`
	ModifiedCount int64       `json:"modifiedCount"`
	UpsertedCount int64       `json:"upsertedCount"`
	UpsertedID    interface{} `json:"upsertedId"`
}

func newUpdateResult(r *mongo.UpdateResult) *UpdateResult {
	if r == nil {
		return &UpdateResult{}
	}
	return &UpdateResult{
		Acknowledged:  true,
		MatchedCount:  r.MatchedCount,
		ModifiedCount: r.ModifiedCount,
		UpsertedCount: r.UpsertedCount,
		UpsertedID:    r.UpsertedID,
	}
}
