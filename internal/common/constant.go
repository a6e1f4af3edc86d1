package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultWarrantyKeyLength is the length of generated warranty keys.
const DefaultWarrantyKeyLength = 10

// DefaultFallbackDays is used when a dying account has no usable expiry date.
const DefaultFallbackDays = 30
