package stage

import (
	"context"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/domain"
)

// executeDesign выполняет фазу DESIGN последовательно по объявлениям:
// рендер комнаты зависит только от анализа самой комнаты, а лимиты
// render-collaborator'а заметно жёстче остальных. Ошибка рендера
// отдельной комнаты записывается в результат как частичный сбой.
func (e *Executor) executeDesign(ctx context.Context, in Inputs) (*domain.Payload, error) {
	designs := make([]domain.DesignReport, 0, len(in.Listings))

	for _, listing := range in.Listings {
		style := in.DefaultStyle
		if s, ok := in.Styles[listing.ID]; ok && s != "" {
			style = s
		}
		designs = append(designs, e.designListing(ctx, listing, style))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	e.logger.Info("design phase finished", "listings", len(designs))

	return &domain.Payload{Designs: designs}, nil
}

// designListing анализирует комнаты одного объявления и генерирует
// рендеры в заданном стиле.
func (e *Executor) designListing(ctx context.Context, listing domain.Listing, style string) domain.DesignReport {
	report := domain.DesignReport{
		ListingID: listing.ID,
		Style:     style,
	}

	var rooms []collab.RoomInfo
	err := e.withRetry(ctx, "render", func() error {
		var aerr error
		rooms, aerr = e.render.AnalyzeRooms(ctx, listing.Images)
		return aerr
	})
	if err != nil {
		e.logger.Warn("room analysis failed",
			"listing_id", listing.ID,
			"error", err,
		)
		return report
	}

	for _, room := range rooms {
		render := domain.RoomRender{
			Room:      room.Room,
			BeforeURL: room.ImageURL,
		}

		var result *collab.RenderResult
		err := e.withRetry(ctx, "render", func() error {
			var rerr error
			result, rerr = e.render.Redesign(ctx, room, style)
			return rerr
		})
		if err != nil {
			e.logger.Warn("room redesign failed",
				"listing_id", listing.ID,
				"room", room.Room,
				"error", err,
			)
			render.Error = err.Error()
		} else {
			render.AfterURL = result.AfterURL
			render.Description = result.Description
		}

		report.Rooms = append(report.Rooms, render)
	}

	return report
}
