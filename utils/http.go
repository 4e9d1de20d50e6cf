// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared outbound client used for workflow dispatch.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
