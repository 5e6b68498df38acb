package handlers

// HandlerBundle groups every HTTP handler for route registration.
type HandlerBundle struct {
	Auth    *AuthHandler
	Jobs    *JobHandler
	Feed    *FeedHandler
	Storage *StorageHandler
	AI      *AIHandler
	Geo     *GeoHandler
}
