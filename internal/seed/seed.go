// seed наполняет хранилище демонстрационным каталогом: видео "1".."5"
// авторов user1..user5 и их профили. Повторный запуск ничего не меняет.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

const sampleBase = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/"

// Videos — демонстрационный каталог в порядке ленты.
var Videos = []storage.NewVideo{
	{
		ID:          "1",
		UserID:      "user1",
		Username:    "creativemind",
		AvatarURL:   "/avatars/creativemind.png",
		VideoURL:    sampleBase + "BigBuckBunny.mp4",
		Description: "Découvrez ma nouvelle création artistique 🎨✨ #art #creative",
		SoundName:   "Son original - creativemind",
		Likes:       12500,
		Comments:    234,
		Shares:      89,
	},
	{
		ID:          "2",
		UserID:      "user2",
		Username:    "techlover",
		AvatarURL:   "/avatars/techlover.png",
		VideoURL:    sampleBase + "ElephantsDream.mp4",
		Description: "Les meilleurs tips tech de la semaine 💻 #tech #tips #viral",
		SoundName:   "Trending Sound Mix",
		Likes:       45200,
		Comments:    892,
		Shares:      456,
	},
	{
		ID:          "3",
		UserID:      "user3",
		Username:    "lifestylevibe",
		AvatarURL:   "/avatars/lifestylevibe.png",
		VideoURL:    sampleBase + "ForBiggerBlazes.mp4",
		Description: "Routine matinale pour bien commencer la journée ☀️ #lifestyle #morning",
		SoundName:   "Chill Vibes - DJ Mix",
		Likes:       28900,
		Comments:    567,
		Shares:      234,
	},
	{
		ID:          "4",
		UserID:      "user4",
		Username:    "artguru",
		AvatarURL:   "/avatars/artguru.png",
		VideoURL:    sampleBase + "ForBiggerEscapes.mp4",
		Description: "L'art de la créativité en 30 secondes 🎭 #artistique #inspiration",
		SoundName:   "Son original - artguru",
		Likes:       67800,
		Comments:    1203,
		Shares:      789,
	},
	{
		ID:          "5",
		UserID:      "user5",
		Username:    "fitnessqueen",
		AvatarURL:   "/avatars/fitnessqueen.png",
		VideoURL:    sampleBase + "ForBiggerFun.mp4",
		Description: "Entraînement express 🔥 10 minutes pour tout brûler! #fitness #workout",
		SoundName:   "Workout Beats 2024",
		Likes:       89300,
		Comments:    1456,
		Shares:      923,
	},
}

// Apply создаёт видео каталога и профили их авторов.
// Уже существующие видео/профили (ErrConflict) пропускаются.
// Счётчики профилей вычисляет storage по видео владельца и рёбрам подписок.
func Apply(ctx context.Context, st storage.Storage) error {
	const op = "seed/Apply"

	lg := log.From(ctx).With("op", op)

	var videos, profiles int
	for _, v := range Videos {
		if _, err := st.CreateVideo(ctx, v); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return fmt.Errorf("%s: video %s: %w", op, v.ID, err)
		}
		videos++
	}

	for _, v := range Videos {
		_, err := st.CreateUserProfile(ctx, models.UserProfile{
			UserID:    v.UserID,
			Username:  v.Username,
			AvatarURL: v.AvatarURL,
		})
		if err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return fmt.Errorf("%s: profile %s: %w", op, v.UserID, err)
		}
		profiles++
	}

	lg.Info("seed applied", "videos_created", videos, "profiles_created", profiles)

	return nil
}
