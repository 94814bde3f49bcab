package config

const (
	EnvPrefix = "BAZAAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "BAZAAR_APP_ENV"
	EnvPort     = "BAZAAR_APP_PORT"
	EnvLogLevel = "BAZAAR_LOG_LEVEL"

	EnvDBDSN  = "BAZAAR_DB_DSN"
	EnvDBHost = "BAZAAR_DB_HOST"
	EnvDBUser = "BAZAAR_DB_USER"
	EnvDBName = "BAZAAR_DB_NAME"

	EnvRedisURL = "BAZAAR_REDIS_URL"

	EnvJWTSecret = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer = "BAZAAR_JWT_ISSUER"

	EnvGCPProjectID = "BAZAAR_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "BAZAAR_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "BAZAAR_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvReviewTextMin = "BAZAAR_REVIEW_TEXT_MIN"
	EnvReviewTextMax = "BAZAAR_REVIEW_TEXT_MAX"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
