// Package bootstrap runs a quizgen command with a uniform lifecycle: config
// defaults and validation, logger setup, signal-driven cancellation and
// ordered cleanup hooks.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.OnStop(closeProvider)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return generate(ctx)
//	})
package bootstrap
