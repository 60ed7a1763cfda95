package config

type Config struct {
	// Путь к файлу или http(s) URL
	CoursesSource string `env:"CATALOG_COURSES_SOURCE"`
	LinksSource   string `env:"CATALOG_LINKS_SOURCE"`
}
