package common

// AuthorizationHeaderName is the HTTP header used to carry the download
// authorization signature on retrieval requests.
const AuthorizationHeaderName = "Authorization"

// AuthScheme prefixes authorization header values produced by clients
// holding a file's auth key, e.g. "send-v1 <base64 signature>".
const AuthScheme = "send-v1"
