// Package all registers every table backend with internal/storage.
package all

import (
	_ "housingprep/internal/storage/mssql"
	_ "housingprep/internal/storage/postgres"
	_ "housingprep/internal/storage/sqlite"
)
