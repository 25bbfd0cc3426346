package common

// OwnerTokenHeaderName is the HTTP header used to carry the owner-identifying
// token on outbound requests to the field-data API.
const OwnerTokenHeaderName = "X-Owner-Token"
