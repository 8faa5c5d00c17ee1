/*
Package config loads and validates the settings of a bundling run.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Carries the bundle name, directories, extension, separator and patterns
- Fills defaults (file_bundle, ".", ".", ".txt")
- Loads optional config files, picked by extension
- Validates before anything touches the filesystem

🔄 Flow:
1. Default() or LoadFile() produces a Config
2. The command line overrides the fields it sets
3. Validate() checks and cleans it
4. The operation runner consumes it without modifying it

⚡ Notes:
- Unknown keys in config files are errors
- Relative directories in a config file are relative to that file
- HCL expressions can read the environment through env.NAME

🔍 Example:

	cfg, err := config.LoadFile(ctx, "fbundle.yaml")
	if err != nil {
		return err
	}
	cfg.Separator = config.UnescapeSeparator(`---\n`)
	if err := cfg.Validate(ctx); err != nil {
		return errors.Errorf("invalid config: %w", err)
	}
*/
package config
