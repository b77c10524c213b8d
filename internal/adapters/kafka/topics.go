package kafka

// Prediction lifecycle topics
const (
	TopicPredictionCreated  = "predictions.created"
	TopicPredictionAnchored = "predictions.anchored"
)
