package common

// Keys of the flat plaintext preferences store. The task-removal hook runs in
// a separate process and reads these same keys, so they are part of the
// on-disk contract, not an implementation detail.
const (
	PrefKeyToken             = "token"
	PrefKeyDeploymentCode    = "deploymentCode"
	PrefKeyTokenLocked       = "isTokenLocked"
	PrefKeyServiceDisabled   = "background_service_permanently_disabled"
	PrefKeyDisableTimestamp  = "background_service_disable_timestamp"
	PrefKeyLastAlive         = "last_alive_timestamp"
	PrefKeyAutoUpdateInstall = "auto_update_install"
	PrefKeyInstallID         = "install_id"
)

// AccessTokenHeaderName is the HTTP header used to carry the bearer token on
// outbound requests.
const AccessTokenHeaderName = "X-Access-Token"

// InstallIDHeaderName carries the random per-install identifier, so the
// backend can tell reinstalls apart from the same device logging in again.
const InstallIDHeaderName = "X-Install-Id"
