package changes

const DefaultLogDepth = 100

type Config struct {
	// LogDepth caps the number of commits returned by Log.
	LogDepth int
}
